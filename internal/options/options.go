/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package options is the flag- and env-driven configuration surface for
// cmd/haulsched, grounded on cmd/controller/main.go's flag.StringVar +
// env-default pattern — this module has no pkg/utils/env of its own to
// import, so the env-default helper is reimplemented locally in the same
// shape.
package options

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

type ctxKey struct{}

// Options is the full set of CLI/env-configurable knobs for a solve run.
type Options struct {
	IngestBaseURL   string
	DistanceBaseURL string
	CacheDBPath     string
	CacheTTL        time.Duration
	MetricsPort     int

	PlanningStart time.Time
	PlanningEnd   time.Time

	UseCoCoA    bool
	UseTabu     bool
	T0, Tf      float64
	Iterations  int
	NumTries    int
	RestartProb float64
	Seed        uint64

	Report bool
	Dev    bool
}

// AddFlags registers every Options field on fs, each with an env-var
// fallback that supplies the value when the flag is not passed on the
// command line — the same two-tier precedence cmd/controller/main.go uses
// via its own env.WithDefaultString/env.WithDefaultInt helpers.
func (o *Options) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.IngestBaseURL, "ingest-base-url", withDefaultString("INGEST_BASE_URL", ""), "base URL of the logistics ingest API")
	fs.StringVar(&o.DistanceBaseURL, "distance-base-url", withDefaultString("DISTANCE_BASE_URL", ""), "base URL of the OSRM-style distance service")
	fs.StringVar(&o.CacheDBPath, "cache-db-path", withDefaultString("CACHE_DB_PATH", "haulsched-cache.sqlite"), "path to the on-disk table cache")
	fs.DurationVar(&o.CacheTTL, "cache-ttl", withDefaultDuration("CACHE_TTL", 5*time.Minute), "how long a cached ingest/distance response stays fresh")
	fs.IntVar(&o.MetricsPort, "metrics-port", withDefaultInt("METRICS_PORT", 8080), "port the Prometheus metrics endpoint binds to")

	o.PlanningStart = withDefaultTime("PLANNING_START", time.Now())
	o.PlanningEnd = withDefaultTime("PLANNING_END", o.PlanningStart.Add(24*time.Hour))
	_, endSet := os.LookupEnv("PLANNING_END")
	fs.Func("planning-start", "RFC3339 instant the planning horizon opens at (default now)", func(v string) error {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return err
		}
		o.PlanningStart = t
		if !endSet {
			o.PlanningEnd = t.Add(24 * time.Hour)
		}
		return nil
	})
	fs.Func("planning-end", "RFC3339 instant the planning horizon closes at (default start + 24h)", func(v string) error {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return err
		}
		o.PlanningEnd = t
		endSet = true
		return nil
	})

	fs.BoolVar(&o.UseCoCoA, "use-cocoa", withDefaultBool("USE_COCOA", false), "bootstrap the search from the CoCoA heuristic instead of an empty schedule")
	fs.BoolVar(&o.UseTabu, "use-tabu", withDefaultBool("USE_TABU", false), "drive the search with tabu search instead of simulated annealing")
	fs.Float64Var(&o.T0, "t0", withDefaultFloat("SA_T0", 100), "simulated annealing starting temperature")
	fs.Float64Var(&o.Tf, "tf", withDefaultFloat("SA_TF", 0.01), "simulated annealing final temperature")
	fs.IntVar(&o.Iterations, "iterations", withDefaultInt("SA_ITERATIONS", 10000), "maximum number of annealing iterations")
	fs.IntVar(&o.NumTries, "num-tries", withDefaultInt("SA_NUM_TRIES", 10), "candidate draws per neighbour() call")
	fs.Float64Var(&o.RestartProb, "restart-prob", withDefaultFloat("SA_RESTART_PROB", 0.01), "probability of reverting to the best-known schedule each iteration")
	fs.Uint64Var(&o.Seed, "seed", uint64(withDefaultInt("SEED", 1)), "PRNG seed for the generator and the annealer")

	fs.BoolVar(&o.Report, "report", withDefaultBool("REPORT", false), "print post-hoc utilisation statistics alongside the score")
	fs.BoolVar(&o.Dev, "dev", withDefaultBool("DEV", false), "use a human-readable development logger instead of JSON")
}

// Validate checks cross-field constraints AddFlags cannot express on its own.
func (o *Options) Validate() error {
	if o.IngestBaseURL == "" {
		return fmt.Errorf("options: --ingest-base-url (or INGEST_BASE_URL) is required")
	}
	if o.T0 <= o.Tf {
		return fmt.Errorf("options: t0 (%g) must be greater than tf (%g)", o.T0, o.Tf)
	}
	if o.Iterations <= 0 {
		return fmt.Errorf("options: iterations must be positive, got %d", o.Iterations)
	}
	if !o.PlanningEnd.After(o.PlanningStart) {
		return fmt.Errorf("options: planning end must be after planning start")
	}
	return nil
}

// Into stashes Options in ctx; From retrieves it, so the rest of the CLI
// doesn't thread a struct pointer through every call.
func Into(ctx context.Context, o *Options) context.Context {
	return context.WithValue(ctx, ctxKey{}, o)
}

// From retrieves the Options stashed by Into, panicking if none was —
// every cmd/haulsched code path that reads it runs only after runSolve
// injects it.
func From(ctx context.Context) *Options {
	o, ok := ctx.Value(ctxKey{}).(*Options)
	if !ok {
		panic("options: no Options in context")
	}
	return o
}

func withDefaultString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func withDefaultInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func withDefaultFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func withDefaultBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func withDefaultDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func withDefaultTime(key string, def time.Time) time.Time {
	if v, ok := os.LookupEnv(key); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return def
}
