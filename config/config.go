// Package config loads simulation configuration from YAML, following the
// teacher's two-stage viper-then-yaml.v3 decode (spec §4.C10): viper reads
// the file and unwraps an outer {kind, def} envelope, then yaml.v3 decodes
// the inner def block into a concrete, typed config struct.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ssacore/bracket"
)

// outerConfig is the {kind, def} envelope every config file is wrapped in,
// so a single file format can describe more than one kind of run.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// TimeSpan is the span [T0, Tf] that SaveAtTimes spreads Count points
// across; the run's own horizon comes from the chosen scenario.
type TimeSpan struct {
	T0 float64 `yaml:"t0"`
	Tf float64 `yaml:"tf"`
}

// SaveAt controls snapshot scheduling: either an explicit list of times, or
// a count of equally spaced points across the time span.
type SaveAt struct {
	Count    int       `yaml:"count"`
	Explicit []float64 `yaml:"explicit"`
}

// BracketTunables mirrors bracket.Policy for YAML decoding.
type BracketTunables struct {
	Fluct     float64 `yaml:"fluct"`
	Threshold int64   `yaml:"threshold"`
	Delta     int64   `yaml:"delta"`
}

// Lattice holds lattice dimensions for the spatial case. It is decoded but
// not read by the CLI: scenario S5 builds its own fixed 5x5 grid.
type Lattice struct {
	Rows  int  `yaml:"rows"`
	Cols  int  `yaml:"cols"`
	Torus bool `yaml:"torus"`
}

// SimulationConfig is the fully decoded configuration for one run.
type SimulationConfig struct {
	Aggregator  string            `yaml:"aggregator"` // "coevolve" | "rssacr" | "rssacr-direct"
	Scenario    string            `yaml:"scenario"`
	Seed        int64             `yaml:"seed"`
	TimeSpan    TimeSpan          `yaml:"timeSpan"`
	SaveAt      SaveAt            `yaml:"saveAt"`
	Bracket     BracketTunables   `yaml:"bracket"`
	Lattice     Lattice           `yaml:"lattice"`
	RunDeadline map[string]string `yaml:"runDeadline"`
}

// BracketPolicy converts the decoded tunables into a bracket.Policy,
// falling back to bracket.DefaultPolicy for a zero-value (unconfigured)
// threshold.
func (cfg *SimulationConfig) BracketPolicy() bracket.Policy {
	if cfg.Bracket.Threshold == 0 {
		return bracket.DefaultPolicy
	}
	return bracket.Policy{
		Fluct:     cfg.Bracket.Fluct,
		Threshold: cfg.Bracket.Threshold,
		Delta:     cfg.Bracket.Delta,
	}
}

// SaveAtTimes resolves the configured saveat schedule into an explicit,
// ascending list of times within [T0,Tf].
func (cfg *SimulationConfig) SaveAtTimes() []float64 {
	if len(cfg.SaveAt.Explicit) > 0 {
		return cfg.SaveAt.Explicit
	}
	if cfg.SaveAt.Count <= 0 {
		return nil
	}
	span := cfg.TimeSpan.Tf - cfg.TimeSpan.T0
	step := span / float64(cfg.SaveAt.Count)
	times := make([]float64, cfg.SaveAt.Count)
	for i := range times {
		times[i] = cfg.TimeSpan.T0 + step*float64(i+1)
	}
	return times
}

// WithRunDeadline returns a context bound by the configured run deadline,
// if one is specified, mirroring the teacher's WithTrainingDeadline.
func (cfg *SimulationConfig) WithRunDeadline(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.RunDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("config: invalid run deadline duration %q: %w", val, err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml loads a SimulationConfig from path: viper reads the file and
// unwraps the {kind, def} envelope, then the def block is re-marshaled and
// decoded through yaml.v3 into the typed struct.
func FromYaml(path string) (*SimulationConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("config: unmarshaling outer envelope: %w", err)
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, fmt.Errorf("config: remarshaling inner def: %w", err)
	}

	cfg := &SimulationConfig{}
	if err := yaml.Unmarshal(spec, cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling inner config: %w", err)
	}
	return cfg, nil
}
