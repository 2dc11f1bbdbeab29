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

// Package neighbour is the only package allowed to produce a new
// schedule.Schedule from an old one. It builds the candidate mutation lists
// from spec.md §4.4 and applies AddTransition/RemoveTransitions candidates
// to step a Schedule forward, the way the teacher's scheduling simulation
// applies a single proposed binding to a cluster snapshot and returns the
// resulting snapshot.
package neighbour

import (
	"fmt"
	"math/rand"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/xbe-inc/haulsched/internal/feasibility"
	"github.com/xbe-inc/haulsched/internal/interval"
	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/schedule"
	"github.com/xbe-inc/haulsched/internal/scoring"
)

// Generator builds empty schedules, constructs candidate mutations and
// applies them. It owns the seeded RNG that draws neighbours, so that
// replaying a search from the same seed reproduces the same sequence of
// neighbours (P7); the annealer draws its own decisions from a separate RNG.
type Generator struct {
	Ctx *feasibility.Context
	rng *rand.Rand
}

// BuildGenerator derives a feasibility.Context from the raw tables and
// wraps it in a Generator seeded deterministically from 1. Callers that
// need a different seed should call Seed immediately afterward.
func BuildGenerator(
	terminals []model.Terminal,
	trucks []model.Truck,
	requests []model.TransportRequest,
	drivingTimeFn func(from, to model.ID) model.Duration,
	planningStart, planningEnd model.Instant,
) (*Generator, error) {
	ctx, err := feasibility.Build(terminals, trucks, requests, drivingTimeFn, planningStart, planningEnd)
	if err != nil {
		return nil, err
	}
	return &Generator{Ctx: ctx, rng: rand.New(rand.NewSource(1))}, nil
}

// Seed re-seeds the generator's RNG. Two generators built from the same
// context and seeded with the same value produce identical neighbour
// sequences.
func (g *Generator) Seed(seed uint64) {
	g.rng = rand.New(rand.NewSource(int64(seed)))
}

// EmptySchedule builds the Schedule with no transitions and populates every
// truck's initial candidate list.
func (g *Generator) EmptySchedule() schedule.Schedule {
	sched := schedule.NewEmpty(g.Ctx)
	for _, t := range g.Ctx.Trucks {
		sched.Candidates[t.ID] = buildCandidatesForTruck(g.Ctx, sched, t.ID)
	}
	return sched
}

// Score is a thin pass-through to scoring.Score, kept on Generator so
// callers driving a search need only hold the generator.
func (g *Generator) Score(sched schedule.Schedule) scoring.Vector {
	return scoring.Score(sched)
}

// Neighbour draws up to numTries candidate mutations uniformly from
// ⋃_t sched.Candidates[t] and applies them, retrying on a stale candidate
// (ErrNotFound/ErrNotUnique — the window or transition it referenced has
// since changed) or on an applied mutation that leaves the score vector
// unchanged. It returns the first schedule with a strictly different score,
// the last schedule it reached if none differed, or the input schedule
// unchanged if the candidate pool is empty (§7, EmptyCandidateSet).
func (g *Generator) Neighbour(sched schedule.Schedule, numTries int) schedule.Schedule {
	if numTries < 1 {
		numTries = 1
	}
	base := scoring.Score(sched)

	last := sched
	haveLast := false
	for i := 0; i < numTries; i++ {
		truck, m, ok := g.sampleMutation(sched)
		if !ok {
			return sched
		}
		next, err := g.apply(sched, truck, m)
		if err != nil {
			continue
		}
		last = next
		haveLast = true
		if scoring.Score(next) != base {
			return next
		}
	}
	if haveLast {
		return last
	}
	return sched
}

// sampleMutation draws one (truck, Mutation) pair uniformly from the union
// of every truck's candidate list. Truck ids are sorted before indexing so
// the draw is a deterministic function of the RNG state, independent of Go's
// randomized map iteration order.
func (g *Generator) sampleMutation(sched schedule.Schedule) (model.ID, schedule.Mutation, bool) {
	total := sched.TotalCandidates()
	if total == 0 {
		return "", schedule.Mutation{}, false
	}
	trucks := make([]model.ID, 0, len(sched.Candidates))
	for id := range sched.Candidates {
		trucks = append(trucks, id)
	}
	sort.Slice(trucks, func(i, j int) bool { return trucks[i] < trucks[j] })

	idx := g.rng.Intn(total)
	for _, id := range trucks {
		list := sched.Candidates[id]
		if idx < len(list) {
			return id, list[idx], true
		}
		idx -= len(list)
	}
	return "", schedule.Mutation{}, false
}

// Apply applies a single mutation to sched, exported for callers that pick
// a specific candidate rather than sampling one, such as the CoCoA
// bootstrap heuristic.
func (g *Generator) Apply(sched schedule.Schedule, truck model.ID, m schedule.Mutation) (schedule.Schedule, error) {
	return g.apply(sched, truck, m)
}

func (g *Generator) apply(sched schedule.Schedule, truck model.ID, m schedule.Mutation) (schedule.Schedule, error) {
	switch m.Kind {
	case schedule.MutationAdd:
		return g.applyAdd(sched, truck, m)
	case schedule.MutationRemove:
		return g.applyRemove(sched, truck, m)
	default:
		return schedule.Schedule{}, fmt.Errorf("neighbour: unknown mutation kind %d", m.Kind)
	}
}

// applyAdd implements the AddTransition mutation-application procedure of
// spec.md §4.4: extract the window, insert the transition, split the window
// around it, drop the cargo from Unplanned, and rebuild every truck's
// candidate list from the resulting state.
func (g *Generator) applyAdd(sched schedule.Schedule, truck model.ID, m schedule.Mutation) (schedule.Schedule, error) {
	if !sched.Unplanned.Has(m.Cargo) {
		// another truck claimed this cargo since the candidate was built;
		// the same staleness ExtractInterval reports for a window that
		// moved out from under a candidate.
		return schedule.Schedule{}, interval.ErrNotFound
	}

	next := sched.Copy()

	w, rest, err := next.Unoccupied[truck].ExtractInterval(m.Start, m.End)
	if err != nil {
		return schedule.Schedule{}, err
	}
	next.Unoccupied[truck] = rest

	transition := interval.Row[schedule.TransitionLabel]{
		Start: m.Start, End: m.End,
		Label: schedule.TransitionLabel{From: m.From, To: m.To, Cargo: m.Cargo},
	}
	next.Transitions[truck] = next.Transitions[truck].Concat(interval.NewFromRow(transition))

	var splits []interval.Row[schedule.WindowLabel]
	if w.Start < m.Start {
		splits = append(splits, interval.Row[schedule.WindowLabel]{
			Start: w.Start, End: m.Start, Label: schedule.WindowLabel{From: w.Label.From, To: m.From},
		})
	}
	if m.End < w.End {
		splits = append(splits, interval.Row[schedule.WindowLabel]{
			Start: m.End, End: w.End, Label: schedule.WindowLabel{From: m.To, To: w.Label.To},
		})
	}
	if len(splits) > 0 {
		next.Unoccupied[truck] = next.Unoccupied[truck].Concat(interval.New(splits))
	}

	next.Unplanned.Delete(m.Cargo)
	rebuildAllCandidates(g.Ctx, next)
	return next, nil
}

// applyRemove implements the RemoveTransitions mutation-application
// procedure: discard every transition overlapping [m.Start, m.End), return
// their cargo to Unplanned, and merge the freed span with whatever
// unoccupied window abuts it on either side into a single window running
// from the end of the closest preceding transition (or the horizon start)
// to the start of the closest following transition (or the horizon end).
func (g *Generator) applyRemove(sched schedule.Schedule, truck model.ID, m schedule.Mutation) (schedule.Schedule, error) {
	next := sched.Copy()

	var kept []interval.Row[schedule.TransitionLabel]
	var removedCargo []model.ID
	for _, r := range next.Transitions[truck].Rows() {
		if r.End <= m.Start || m.End <= r.Start {
			kept = append(kept, r)
		} else {
			removedCargo = append(removedCargo, r.Label.Cargo)
		}
	}
	if len(removedCargo) == 0 {
		return schedule.Schedule{}, interval.ErrNotFound
	}
	next.Transitions[truck] = interval.New(kept)
	for _, c := range removedCargo {
		next.Unplanned.Insert(c)
	}

	truckEntity := g.Ctx.TrucksByID[truck]
	gapStart := g.Ctx.HorizonStart
	gapFrom := truckEntity.StartingTerminal
	for _, r := range kept {
		if r.End <= m.Start {
			gapStart = r.End
			gapFrom = r.Label.To
		}
	}
	gapEnd := g.Ctx.HorizonEnd
	gapTo := truckEntity.StartingTerminal
	for _, r := range kept {
		if r.Start >= m.End {
			gapEnd = r.Start
			gapTo = r.Label.From
			break
		}
	}

	var merged []interval.Row[schedule.WindowLabel]
	for _, w := range next.Unoccupied[truck].Rows() {
		if w.End <= gapStart || w.Start >= gapEnd {
			merged = append(merged, w)
		}
	}
	if gapStart < gapEnd {
		merged = append(merged, interval.Row[schedule.WindowLabel]{
			Start: gapStart, End: gapEnd, Label: schedule.WindowLabel{From: gapFrom, To: gapTo},
		})
	}
	next.Unoccupied[truck] = interval.New(merged)

	rebuildAllCandidates(g.Ctx, next)
	return next, nil
}

// rebuildAllCandidates recomputes every truck's candidate list against
// sched's current state. AddTransition candidates are gated on the
// schedule-wide Unplanned set (spec.md §4.4), so a mutation that inserts or
// removes a transition changes what every truck, not just the one it
// touched, may legally offer next: rebuilding only the mutated truck's list
// would leave every other truck holding a stale AddTransition candidate for
// cargo that just left Unplanned, which a window-geometry check alone can't
// catch since the other truck's own windows never moved.
func rebuildAllCandidates(ctx *feasibility.Context, sched schedule.Schedule) {
	for truck := range sched.Candidates {
		sched.Candidates[truck] = buildCandidatesForTruck(ctx, sched, truck)
	}
}

// buildCandidatesForTruck recomputes one truck's full candidate list from
// its current unoccupied windows, current transitions and the schedule-wide
// unplanned set.
func buildCandidatesForTruck(ctx *feasibility.Context, sched schedule.Schedule, truck model.ID) []schedule.Mutation {
	var out []schedule.Mutation
	for _, w := range sched.Unoccupied[truck].Rows() {
		out = append(out, candidatesForWindow(ctx, truck, w, sched.Unplanned)...)
	}
	for _, x := range sched.Transitions[truck].Rows() {
		out = append(out, schedule.Mutation{Kind: schedule.MutationRemove, Truck: truck, Start: x.Start, End: x.End})
	}
	return out
}

// candidatesForWindow implements the AddTransition candidate construction
// of spec.md §4.4 for a single unoccupied window: for every still-unplanned
// cargo whose direct-delivery start interval overlaps the window, compute
// the set of legal start instants S after padding for the drive from the
// window's origin to pickup and from dropoff to the window's destination,
// and emit one candidate at S's earliest point and one at its latest
// (collapsing to a single candidate when S is a single point).
func candidatesForWindow(
	ctx *feasibility.Context,
	truck model.ID,
	w interval.Row[schedule.WindowLabel],
	unplanned sets.Set[model.ID],
) []schedule.Mutation {
	var out []schedule.Mutation
	for _, r := range ctx.DirectDeliveryStart.Rows() {
		if !unplanned.Has(r.Label.Cargo) {
			continue
		}
		if !(r.Start < w.End && w.Start < r.End) {
			continue
		}

		leftPad := ctx.DrivingTimeFn(w.Label.From, r.Label.From)
		rightPad := ctx.DrivingTimeFn(r.Label.To, w.Label.To)
		duration := r.Label.DrivingTime

		low := w.Start.Add(leftPad)
		if r.Start > low {
			low = r.Start
		}
		high := w.End.Add(-(rightPad + duration))
		if r.End.Add(-duration) < high {
			high = r.End.Add(-duration)
		}
		if low > high {
			continue
		}

		out = append(out, schedule.Mutation{
			Kind: schedule.MutationAdd, Truck: truck, Start: low, End: low.Add(duration),
			From: r.Label.From, To: r.Label.To, Cargo: r.Label.Cargo,
		})
		if high > low {
			out = append(out, schedule.Mutation{
				Kind: schedule.MutationAdd, Truck: truck, Start: high, End: high.Add(duration),
				From: r.Label.From, To: r.Label.To, Cargo: r.Label.Cargo,
			})
		}
	}
	return out
}
