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

// Package anneal drives a search over the schedule/neighbour state space
// toward a high-scoring Schedule. Solve implements the geometric-cooling
// simulated annealer of spec.md §4.6; TabuSearch is a supplemental
// short-term-memory driver offered as an alternative, grounded on the
// Python original's ts.py sibling to its sa.py.
package anneal

import (
	"math"
	"math/rand"
	"sort"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/xbe-inc/haulsched/internal/interval"
	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/neighbour"
	"github.com/xbe-inc/haulsched/internal/schedule"
	"github.com/xbe-inc/haulsched/internal/scoring"
)

// Solve runs geometric-cooling simulated annealing from initial and returns
// the best schedule found and its score. The driver owns its own seeded
// RNG, independent of the generator's, so a search's acceptance decisions
// and a generator's neighbour draws vary independently (§5).
func Solve(
	initial schedule.Schedule,
	gen *neighbour.Generator,
	t0, tf float64,
	iterations int,
	numTries int,
	restartProb float64,
	seed uint64,
) (schedule.Schedule, scoring.Vector) {
	alpha := math.Exp((math.Log(tf) - math.Log(t0)) / float64(iterations))

	rng := rand.New(rand.NewSource(int64(seed)))

	current := initial
	currentScore := scoring.Score(current)
	best := current
	bestScore := currentScore

	temperature := t0
	for i := 0; i < iterations && temperature > tf; i++ {
		if rng.Float64() < restartProb {
			current = best
			currentScore = bestScore
		}

		next := gen.Neighbour(current, numTries)
		nextScore := scoring.Score(next)

		accept := scoring.Better(nextScore, currentScore)
		if !accept {
			accept = rng.Float64() < acceptanceProbability(nextScore, currentScore, temperature)
		}
		if accept {
			current = next
			currentScore = nextScore
		}

		if scoring.Better(currentScore, bestScore) {
			best = current
			bestScore = currentScore
		}

		temperature *= alpha
	}

	return best, bestScore
}

// acceptanceProbability implements the multi-component acceptance rule from
// spec.md §4.6: weight the delivered-count delta heavily, the free-truck
// delta lightly, and fold in the driving-time delta only when deliveries
// did not improve. An overflowing exponent saturates to 1 rather than Inf.
func acceptanceProbability(next, current scoring.Vector, temperature float64) float64 {
	d := scoring.Diff(next, current)
	combined := 3*float64(d.D) + 0.05*float64(d.F)
	if d.D <= 0 {
		combined += float64(d.T)
	}
	p := math.Exp(combined / temperature)
	if math.IsInf(p, 1) || p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}

// TabuSearch is an alternate driver to Solve: each iteration it samples
// candidateNeighbours neighbours, ranks them best-first, and walks down the
// ranking to the first one whose fingerprint is not in the short-term tabu
// list (or that beats the best-known schedule outright, the aspiration
// criterion), falling back to the top-ranked candidate if every one of them
// is tabu. Grounded on the Python original's ts_solve.
func TabuSearch(
	initial schedule.Schedule,
	gen *neighbour.Generator,
	tabuListSize int,
	maxIterations int,
	numTries int,
	candidateNeighbours int,
) (schedule.Schedule, scoring.Vector) {
	if candidateNeighbours < 1 {
		candidateNeighbours = 1
	}
	if tabuListSize < 1 {
		tabuListSize = 1
	}

	current := initial
	best := current
	bestScore := scoring.Score(best)

	type ranked struct {
		sched schedule.Schedule
		score scoring.Vector
		fp    uint64
	}

	tabu := make(map[uint64]struct{}, tabuListSize)
	var tabuOrder []uint64

	for iter := 0; iter < maxIterations; iter++ {
		candidates := make([]ranked, 0, candidateNeighbours)
		for i := 0; i < candidateNeighbours; i++ {
			n := gen.Neighbour(current, numTries)
			candidates = append(candidates, ranked{sched: n, score: scoring.Score(n), fp: fingerprint(n)})
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return scoring.Better(candidates[i].score, candidates[j].score)
		})

		selected := candidates[0]
		for _, c := range candidates {
			if _, isTabu := tabu[c.fp]; !isTabu || scoring.Better(c.score, bestScore) {
				selected = c
				break
			}
		}

		current = selected.sched
		if scoring.Better(selected.score, bestScore) {
			best = current
			bestScore = selected.score
		}

		tabu[selected.fp] = struct{}{}
		tabuOrder = append(tabuOrder, selected.fp)
		if len(tabuOrder) > tabuListSize {
			delete(tabu, tabuOrder[0])
			tabuOrder = tabuOrder[1:]
		}
	}

	return best, bestScore
}

// truckState is the exported-field projection of one truck's mutable
// schedule state that fingerprint hashes. interval.Set's internal slice is
// unexported, so hashstructure would see it as empty; Rows() surfaces the
// content it needs to hash.
type truckState struct {
	Transitions []interval.Row[schedule.TransitionLabel]
	Unoccupied  []interval.Row[schedule.WindowLabel]
}

func fingerprint(s schedule.Schedule) uint64 {
	snapshot := make(map[model.ID]truckState, len(s.Transitions))
	for truck := range s.Transitions {
		snapshot[truck] = truckState{
			Transitions: s.Transitions[truck].Rows(),
			Unoccupied:  s.Unoccupied[truck].Rows(),
		}
	}
	h, err := hashstructure.Hash(snapshot, hashstructure.FormatV2, nil)
	if err != nil {
		panic(err)
	}
	return h
}
