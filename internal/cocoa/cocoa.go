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

// Package cocoa bootstraps a schedule with a graph-based, cooperative
// constraint-optimization heuristic instead of starting from
// neighbour.Generator's empty schedule, grounded on
// original_source/src/multiagent/{Graph,Container,TruckDriver,CoCoASolver}.py.
// The original runs a distributed message-passing protocol between
// TruckDriver agents over a constraint graph; this package keeps its
// round-based, greedy-gain-propagation shape — each round every truck
// claims its best still-available request — without reproducing the
// agent state machine (IDLE/ACTIVE/HOLD/DONE) message by message, since
// nothing here needs the original's asynchronous agent ordering.
package cocoa

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/neighbour"
	"github.com/xbe-inc/haulsched/internal/obslog"
	"github.com/xbe-inc/haulsched/internal/schedule"
)

// MaxRounds bounds the number of greedy assignment rounds CoCoASolver.solve
// would otherwise run until every agent settles into State.DONE.
const MaxRounds = 256

// Bootstrap builds a schedule by repeatedly letting every truck claim its
// best-scoring still-unplanned AddTransition candidate, one claim per truck
// per round, until a full round claims nothing. Every claim goes through
// gen.Apply, so the result is exactly as invariant-clean as any schedule
// the core neighbour generator produces.
func Bootstrap(ctx context.Context, gen *neighbour.Generator) (schedule.Schedule, error) {
	sched := gen.EmptySchedule()
	log := obslog.From(ctx)

	round := 0
	for ; round < MaxRounds; round++ {
		claimed := false
		for _, truck := range sortedTruckIDs(sched) {
			candidate, ok := bestAddCandidate(sched.Candidates[truck])
			if !ok {
				continue
			}
			next, err := gen.Apply(sched, truck, candidate)
			if err != nil {
				// the candidate no longer applies to the current schedule;
				// skip this truck for this round.
				continue
			}
			sched = next
			claimed = true
		}
		if !claimed {
			break
		}
	}

	log.Info("cocoa bootstrap converged", zap.Int("rounds", round), zap.Int("delivered", sched.DeliveredCargoCount()))
	return sched, nil
}

// bestAddCandidate picks the AddTransition candidate with the earliest
// legal start, the greedy local utility a TruckDriver agent with no
// neighbours falls back to when it has no cost estimates to compare
// (assign_preferences_directly).
func bestAddCandidate(candidates []schedule.Mutation) (schedule.Mutation, bool) {
	var best schedule.Mutation
	found := false
	for _, c := range candidates {
		if c.Kind != schedule.MutationAdd {
			continue
		}
		if !found || c.Start < best.Start || (c.Start == best.Start && c.Cargo < best.Cargo) {
			best = c
			found = true
		}
	}
	return best, found
}

func sortedTruckIDs(sched schedule.Schedule) []model.ID {
	ids := make([]model.ID, 0, len(sched.Candidates))
	for id := range sched.Candidates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
