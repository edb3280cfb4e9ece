// Package client publishes trajectory snapshots to a single websocket
// viewer (spec §4.C12's telemetry transport), adapted from the teacher's
// fastview client: reads and writes are serialized through channel
// semaphores, and ping/pong liveness runs alongside publication via an
// errgroup. Unlike the teacher's client, which is generic over any
// idempotent view model, this one knows the shape of a TrajectorySnapshot
// and uses that to skip re-publishing state the simulation hasn't actually
// advanced -- pacing itself is owned entirely by the hub's batching stage,
// not duplicated here.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"ssacore/server/view"
)

const (
	writeWait      = 1 * time.Second
	pingResolution = 500 * time.Millisecond
	pongWait       = pingResolution * 4

	readDeadline     = time.Second
	writeDeadline    = time.Second
	closeGracePeriod = 10 * time.Second
)

var upgrader = websocket.Upgrader{}

// ErrSockCongestion indicates there are too many waiters on the socket for
// a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

// ErrPongDeadlineExceeded means the peer stopped answering pings.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// Client publishes trajectory snapshots to one websocket peer. updates is
// expected to already be paced by the hub (spec §5: a full hub output
// drops the newest snapshot), so Client applies no rate limit of its own;
// it only suppresses resending a snapshot whose JumpCount hasn't moved
// since the last write, which happens when the simulation is idle between
// saveat times but the hub's ticker still fires.
type Client struct {
	updates <-chan view.TrajectorySnapshot
	ws      *websock
	rootCtx context.Context
}

// NewClient upgrades the HTTP request to a websocket and returns a
// publisher reading from updates.
func NewClient(updates <-chan view.TrajectorySnapshot, w http.ResponseWriter, r *http.Request) (*Client, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	return &Client{
		updates: updates,
		ws:      newWebSocket(ws),
		rootCtx: r.Context(),
	}, nil
}

// Sync runs the read pump, ping/pong liveness check, and publish loop
// concurrently until the peer disconnects or an unrecoverable error occurs.
func (cli *Client) Sync() error {
	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	group.Go(func() error { return cli.readMessages(groupCtx) })
	group.Go(func() error { return cli.pingPong(groupCtx) })
	group.Go(func() error { return cli.publish(groupCtx) })
	return group.Wait()
}

func (cli *Client) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		pong <- struct{}{}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client) ping(ctx context.Context) error {
	return cli.ws.Write(ctx, func(ws *websocket.Conn) error {
		if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			if isError(err) {
				return fmt.Errorf("ping failed: %w", err)
			}
		}
		return nil
	})
}

// readMessages drives the websocket's read side so control frames (pongs,
// client-initiated close) are handled; this connection is otherwise
// send-only.
func (cli *Client) readMessages(ctx context.Context) error {
	for {
		err := cli.ws.Read(ctx, func(ws *websocket.Conn) error {
			_, _, readErr := ws.ReadMessage()
			return readErr
		})
		if err != nil {
			return err
		}
	}
}

// publish forwards every snapshot the hub sends, skipping one whose
// JumpCount repeats the last snapshot written (a run that has stalled
// between reaction/hop events still ticks the hub's batch timer, but
// resending an unchanged trajectory state to the browser is wasted work).
func (cli *Client) publish(ctx context.Context) error {
	lastJumpCount := int64(-1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-cli.updates:
			if !ok {
				return nil
			}
			if snap.JumpCount == lastJumpCount {
				continue
			}
			lastJumpCount = snap.JumpCount

			err := cli.ws.Write(ctx, func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return fmt.Errorf("failed to set deadline: %w", err)
				}
				if err := ws.WriteJSON(snap); err != nil && isError(err) {
					return fmt.Errorf("publish snapshot at t=%g failed: %w", snap.T, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// websock serializes reads and writes to the underlying connection, whose
// gorilla/websocket contract allows at most one concurrent reader and one
// concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Conn returns the underlying connection; only safe for non-concurrent
// setup calls (e.g. registering handlers) before Sync starts.
func (sock *websock) Conn() *websocket.Conn { return sock.ws }

// Close tears down the connection, waiting for in-flight read/write to
// finish first.
func (sock *websock) Close() {
	sock.readSem <- struct{}{}
	sock.writeSem <- struct{}{}

	_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sock.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	sock.ws.Close()
}

func (sock *websock) Read(ctx context.Context, readFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(readDeadline):
		return ErrSockCongestion
	}
}

func (sock *websock) Write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
