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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xbe-inc/haulsched/internal/anneal"
	"github.com/xbe-inc/haulsched/internal/cocoa"
	"github.com/xbe-inc/haulsched/internal/distance"
	"github.com/xbe-inc/haulsched/internal/ingest"
	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/neighbour"
	"github.com/xbe-inc/haulsched/internal/obslog"
	"github.com/xbe-inc/haulsched/internal/options"
	"github.com/xbe-inc/haulsched/internal/schedule"
	"github.com/xbe-inc/haulsched/internal/scoring"
	"github.com/xbe-inc/haulsched/internal/searchmetrics"
	"github.com/xbe-inc/haulsched/internal/tablecache"
)

func newSolveCmd() *cobra.Command {
	opts := &options.Options{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Ingest current demand and produce a scheduled plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts)
		},
	}
	goFlags := flag.NewFlagSet("solve", flag.ContinueOnError)
	opts.AddFlags(goFlags)
	cmd.Flags().AddGoFlagSet(goFlags)
	return cmd
}

func runSolve(cmd *cobra.Command, opts *options.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	logger, err := obslog.NewProduction(opts.Dev)
	if err != nil {
		return fmt.Errorf("haulsched: building logger: %w", err)
	}
	defer logger.Sync()

	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	ctx := obslog.Into(cmd.Context(), logger)
	ctx = options.Into(ctx, opts)

	registry := prometheus.NewRegistry()
	metrics := searchmetrics.New(registry)
	go serveMetrics(ctx, registry, opts.MetricsPort)

	cache, err := tablecache.Open(opts.CacheDBPath)
	if err != nil {
		return fmt.Errorf("haulsched: opening table cache: %w", err)
	}
	defer cache.Close()

	ingestClient := ingest.NewClient(opts.IngestBaseURL)
	ingestClient.Cache = cache
	ingestClient.CacheTTL = opts.CacheTTL

	var terminals []model.Terminal
	var trucks []model.Truck
	var requests []model.TransportRequest

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) { terminals, err = ingestClient.FetchTerminals(gctx); return })
	group.Go(func() (err error) { trucks, err = ingestClient.FetchTrucks(gctx); return })
	group.Go(func() (err error) { requests, err = ingestClient.FetchRequests(gctx); return })
	if err := group.Wait(); err != nil {
		return fmt.Errorf("haulsched: ingest: %w", err)
	}
	logger.Info("ingested demand",
		zap.Int("terminals", len(terminals)), zap.Int("trucks", len(trucks)), zap.Int("requests", len(requests)))

	distanceClient := distance.NewClient(opts.DistanceBaseURL)
	distanceClient.Cache = cache
	distanceClient.CacheTTL = opts.CacheTTL
	table, err := distanceClient.Matrix(ctx, terminals)
	if err != nil {
		return fmt.Errorf("haulsched: distance matrix: %w", err)
	}

	gen, err := neighbour.BuildGenerator(terminals, trucks, requests, table.Func(),
		model.Instant(opts.PlanningStart.Unix()), model.Instant(opts.PlanningEnd.Unix()))
	if err != nil {
		return fmt.Errorf("haulsched: precomputing feasibility: %w", err)
	}
	gen.Seed(opts.Seed)

	var initial schedule.Schedule
	if opts.UseCoCoA {
		initial, err = cocoa.Bootstrap(ctx, gen)
		if err != nil {
			return fmt.Errorf("haulsched: cocoa bootstrap: %w", err)
		}
	} else {
		initial = gen.EmptySchedule()
	}

	var best schedule.Schedule
	var score scoring.Vector
	if opts.UseTabu {
		best, score = anneal.TabuSearch(initial, gen, 25, opts.Iterations, opts.NumTries, 8)
	} else {
		best, score = anneal.Solve(initial, gen, opts.T0, opts.Tf, opts.Iterations, opts.NumTries, opts.RestartProb, opts.Seed)
	}

	metrics.IterationsTotal.Add(float64(opts.Iterations))
	metrics.BestDelivered.Set(float64(score.Delivered))
	metrics.BestDrivingTime.Set(float64(-score.NegDrivingTime))

	out := solveOutput{RunID: runID, Score: score, Transitions: transitionsOf(best)}
	if opts.Report {
		report := scoring.ComputeReport(best)
		out.Report = &report
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func serveMetrics(ctx context.Context, registry *prometheus.Registry, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	_ = srv.ListenAndServe()
}

type transitionDTO struct {
	Truck model.ID      `json:"truck"`
	From  model.ID      `json:"from"`
	To    model.ID      `json:"to"`
	Cargo model.ID      `json:"cargo"`
	Start model.Instant `json:"start"`
	End   model.Instant `json:"end"`
}

type solveOutput struct {
	RunID       string          `json:"run_id"`
	Score       scoring.Vector  `json:"score"`
	Transitions []transitionDTO `json:"transitions"`
	Report      *scoring.Report `json:"report,omitempty"`
}

func transitionsOf(s schedule.Schedule) []transitionDTO {
	var out []transitionDTO
	for truck, set := range s.Transitions {
		for _, r := range set.Rows() {
			out = append(out, transitionDTO{
				Truck: truck, From: r.Label.From, To: r.Label.To, Cargo: r.Label.Cargo,
				Start: r.Start, End: r.End,
			})
		}
	}
	return out
}
