// Package server implements the telemetry server (spec §4.C12): it serves
// a single HTML dashboard and streams trajectory snapshots to any number
// of connected viewers over websockets.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"ssacore/server/client"
	"ssacore/server/view"
	"ssacore/stepper"

	"github.com/gorilla/mux"
)

// Server serves the dashboard page, fans a single upstream snapshot stream
// out to every connected viewer (unlike the teacher's server, which assumed
// exactly one browser tab would ever connect), and exposes run stats that
// the simulation goroutine writes without a mutex (spec §4.C13).
type Server struct {
	addr  string
	hub   *hub
	stats *stepper.Stats
}

// NewServer starts the internal fan-out hub reading from snapshots and
// returns a Server ready to Serve. snapshots is typically the stepper's
// onSnapshot hook, adapted into a channel by the caller (cmd/ssacore); ctx
// cancellation tears down the hub and closes every subscriber. stats may be
// nil, in which case /stats reports zero values.
func NewServer(ctx context.Context, addr string, snapshots <-chan view.TrajectorySnapshot, stats *stepper.Stats) *Server {
	h := newHub()
	go h.run(ctx.Done(), snapshots)
	return &Server{addr: addr, hub: h, stats: stats}
}

// Serve registers routes on a gorilla/mux router and blocks serving HTTP.
func (s *Server) Serve() error {
	r := mux.NewRouter()
	r.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.serveWebsocket)
	r.HandleFunc("/stats", s.serveStats).Methods(http.MethodGet)

	if err := http.ListenAndServe(s.addr, r); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// statsView is the JSON body /stats reports: the stepper's atomic counters,
// read here from the HTTP handler's goroutine while the simulation
// goroutine keeps writing them concurrently.
type statsView struct {
	JumpsFired float64 `json:"jumps_fired"`
	Elapsed    float64 `json:"elapsed_seconds"`
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	var sv statsView
	if s.stats != nil {
		sv.JumpsFired = s.stats.JumpsFired.Load()
		sv.Elapsed = s.stats.Elapsed.Load()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sv); err != nil {
		log.Println("stats encode:", err)
	}
}

// serveWebsocket upgrades the connection and streams snapshots to it until
// the peer disconnects or a liveness check fails.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	sub := s.hub.subscribe()
	defer s.hub.unsubscribe(sub)

	cli, err := client.NewClient(sub, w, r)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	if err := cli.Sync(); err != nil {
		log.Println("sync:", err)
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var indexTemplate = template.Must(template.New("index.html").Parse(`<!DOCTYPE html>
<html>
<head><title>ssacore</title></head>
<body>
<h1>ssacore telemetry</h1>
<pre id="log"></pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
  document.getElementById("log").textContent = ev.data;
};
</script>
</body>
</html>`))
