/*
ssacore runs a continuous-time Markov jump process simulation (Gillespie/
SSA/kinetic Monte Carlo) to completion while streaming its trajectory to a
telemetry dashboard in realtime. Pick an aggregator (coevolve, rssacr,
rssacr-direct) and a preset scenario (s1, s4 or s5) via -config, or let the
defaults run the birth-death-spontaneous system under RSSACR.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"

	"ssacore/aggregator"
	"ssacore/catalog"
	"ssacore/config"
	"ssacore/depgraph"
	"ssacore/scenario"
	"ssacore/server"
	"ssacore/server/view"
	"ssacore/stepper"
)

var (
	dbg        *bool
	host       *string
	port       *string
	configPath *string
	addr       string
)

// TODO: per 12-factor rules these should come from env/config-map; KISS for now.
func init() {
	dbg = flag.Bool("debug", false, "debug mode")
	host = flag.String("host", "", "the host ip")
	port = flag.String("port", "8080", "the host port")
	configPath = flag.String("config", "./config.yaml", "path to the simulation config")
	flag.Parse()
	addr = *host + ":" + *port
}

func runApp() error {
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		return err
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	runCtx, cancelRun, err := cfg.WithRunDeadline(appCtx)
	if err != nil {
		return err
	}
	defer cancelRun()

	snapshots := make(chan view.TrajectorySnapshot)

	s, err := buildStepper(cfg, runCtx, snapshots)
	if err != nil {
		return err
	}

	srv := server.NewServer(runCtx, addr, snapshots, s.Stats())

	go func() {
		if err := s.Run(); err != nil {
			fmt.Println("simulation:", err)
		}
		close(snapshots)
	}()

	if *dbg {
		fmt.Printf("ssacore serving on %s, scenario=%s aggregator=%s\n", addr, cfg.Scenario, cfg.Aggregator)
	}
	return srv.Serve()
}

// buildStepper builds the scenario and aggregator named in cfg and wires a
// stepper that publishes each saveat snapshot to the telemetry server;
// Stats() is read from the server's /stats handler while Run drives the
// simulation on its own goroutine (spec §4.C13).
func buildStepper(cfg *config.SimulationConfig, ctx context.Context, snapshots chan<- view.TrajectorySnapshot) (*stepper.Stepper, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	agg, u, p, _, err := buildAggregator(cfg, rng)
	if err != nil {
		return nil, err
	}

	onSnapshot := func(snap stepper.Snapshot) {
		tv := view.Convert(snap)
		select {
		case snapshots <- tv:
		case <-ctx.Done():
		}
	}

	return stepper.New(u, p, 0, agg, cfg.SaveAtTimes(), nil, onSnapshot), nil
}

func buildAggregator(cfg *config.SimulationConfig, rng *rand.Rand) (aggregator.Aggregator, catalog.State, catalog.Params, float64, error) {
	switch cfg.Scenario {
	case "s1", "":
		js, u, p, tf := scenario.S1()
		agg, err := buildWellMixed(cfg, js, u.NumSpecies(), tf, rng)
		return agg, u, p, tf, err
	case "s4":
		js, u, p, tf := scenario.S4()
		agg, err := buildWellMixed(cfg, js, u.NumSpecies(), tf, rng)
		return agg, u, p, tf, err
	case "s5":
		js, u, top, hops, tf := scenario.S5()
		dep := depgraph.BuildWithVars(js, nil)
		agg := aggregator.NewRSSACRDirectAggregator(js, dep, cfg.BracketPolicy(), u.NumSpecies(), top, hops, tf, rng)
		return agg, u, nil, tf, nil
	default:
		return nil, nil, nil, 0, fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}
}

// buildWellMixed selects between Coevolve and RSSACR for a non-spatial
// scenario, per cfg.Aggregator.
func buildWellMixed(cfg *config.SimulationConfig, js *catalog.JumpSet, numSpecies int, tf float64, rng *rand.Rand) (aggregator.Aggregator, error) {
	dep := depgraph.BuildWithVars(js, nil)
	switch cfg.Aggregator {
	case "coevolve":
		return aggregator.NewCoevolveAggregator(js, dep, tf, rng)
	case "rssacr", "":
		return aggregator.NewRSSACRAggregator(js, dep, cfg.BracketPolicy(), numSpecies, tf, rng), nil
	default:
		return nil, fmt.Errorf("unknown aggregator %q for a well-mixed scenario", cfg.Aggregator)
	}
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
	}
}
