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

// Package schedule holds the per-truck mutable state a search explores:
// planned transitions, unoccupied windows, candidate mutations, and the set
// of cargo still unassigned. The candidate-construction and
// mutation-application algorithms that keep this state internally
// consistent live in internal/neighbour, which is the only package
// permitted to produce a new Schedule from an old one — Schedule itself is
// data, not behavior, the way the teacher's state.StateNode is a data
// snapshot the scheduling controllers above it mutate through defined
// operations only.
package schedule

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/xbe-inc/haulsched/internal/feasibility"
	"github.com/xbe-inc/haulsched/internal/interval"
	"github.com/xbe-inc/haulsched/internal/model"
)

// TransitionLabel tags a planned, cargo-carrying leg.
type TransitionLabel struct {
	From  model.ID
	To    model.ID
	Cargo model.ID
}

// WindowLabel tags an unoccupied window: the truck sits at From when the
// window begins and must reach To by the time it ends.
type WindowLabel struct {
	From model.ID
	To   model.ID
}

// MutationKind distinguishes the two structural changes a candidate can
// describe. It is a closed tagged sum dispatched by a switch, never by
// virtual dispatch across implementing types.
type MutationKind int

const (
	// MutationAdd inserts a cargo-carrying transition into an unoccupied window.
	MutationAdd MutationKind = iota
	// MutationRemove deletes every transition overlapping [Start, End).
	MutationRemove
)

// Mutation is a candidate structural change to one truck's schedule.
type Mutation struct {
	Kind  MutationKind
	Truck model.ID
	Start model.Instant
	End   model.Instant
	// From, To, Cargo are only meaningful when Kind == MutationAdd.
	From  model.ID
	To    model.ID
	Cargo model.ID
}

// Schedule is the full assignment state for one point in the search: every
// truck's planned transitions and unoccupied windows, its legal candidate
// mutations, and the set of cargo ids not yet assigned to any truck.
// Precomputed feasibility tables are borrowed by reference (Ctx) and shared,
// unmutated, across every Schedule produced during one search.
type Schedule struct {
	Ctx *feasibility.Context

	Transitions map[model.ID]interval.Set[TransitionLabel]
	Unoccupied  map[model.ID]interval.Set[WindowLabel]
	Candidates  map[model.ID][]Mutation
	Unplanned   sets.Set[model.ID]
}

// NewEmpty builds the Schedule with no transitions: every truck's
// unoccupied window spans the full horizon starting and ending at its
// starting terminal, every cargo id is unplanned, and every truck has an
// empty candidate list (internal/neighbour.Generator.EmptySchedule fills it
// in immediately after calling this, per spec.md §4.4).
func NewEmpty(ctx *feasibility.Context) Schedule {
	transitions := make(map[model.ID]interval.Set[TransitionLabel], len(ctx.Trucks))
	unoccupied := make(map[model.ID]interval.Set[WindowLabel], len(ctx.Trucks))
	candidates := make(map[model.ID][]Mutation, len(ctx.Trucks))
	unplanned := sets.New[model.ID]()

	for _, t := range ctx.Trucks {
		transitions[t.ID] = interval.Empty[TransitionLabel]()
		unoccupied[t.ID] = interval.NewFromRow(interval.Row[WindowLabel]{
			Start: ctx.HorizonStart,
			End:   ctx.HorizonEnd,
			Label: WindowLabel{From: t.StartingTerminal, To: t.StartingTerminal},
		})
		candidates[t.ID] = nil
	}
	for cargo := range ctx.Requests {
		unplanned.Insert(cargo)
	}

	return Schedule{
		Ctx:         ctx,
		Transitions: transitions,
		Unoccupied:  unoccupied,
		Candidates:  candidates,
		Unplanned:   unplanned,
	}
}

// Copy performs a structural deep copy of the per-truck mutable state (R4):
// mutating the copy never affects the original. The feasibility context
// remains a shared reference, as it is immutable after build.
func (s Schedule) Copy() Schedule {
	transitions := make(map[model.ID]interval.Set[TransitionLabel], len(s.Transitions))
	for truck, set := range s.Transitions {
		transitions[truck] = set.Copy()
	}
	unoccupied := make(map[model.ID]interval.Set[WindowLabel], len(s.Unoccupied))
	for truck, set := range s.Unoccupied {
		unoccupied[truck] = set.Copy()
	}
	candidates := make(map[model.ID][]Mutation, len(s.Candidates))
	for truck, list := range s.Candidates {
		candidates[truck] = append([]Mutation(nil), list...)
	}

	return Schedule{
		Ctx:         s.Ctx,
		Transitions: transitions,
		Unoccupied:  unoccupied,
		Candidates:  candidates,
		Unplanned:   s.Unplanned.Clone(),
	}
}

// TotalCandidates is the size of the union of every truck's candidate list,
// the N the neighbour generator's uniform sampler draws over.
func (s Schedule) TotalCandidates() int {
	n := 0
	for _, list := range s.Candidates {
		n += len(list)
	}
	return n
}

// DeliveredCargoCount is D from spec.md §4.5: the number of cargo ids moved.
func (s Schedule) DeliveredCargoCount() int {
	n := 0
	for _, set := range s.Transitions {
		n += set.Len()
	}
	return n
}

// FreeTruckCount is F from spec.md §4.5: trucks with no planned transitions.
func (s Schedule) FreeTruckCount() int {
	n := 0
	for _, set := range s.Transitions {
		if set.Len() == 0 {
			n++
		}
	}
	return n
}
