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

// Package scoring computes the multi-objective score vector a Schedule is
// judged by and the comparator the annealer orders candidates with.
package scoring

import "github.com/xbe-inc/haulsched/internal/schedule"

// Vector is the score triple from spec.md §4.5: (delivered, free trucks,
// -total driving time). NegDrivingTime is stored negated so that, for every
// component, larger is better — mirroring the teacher's convention of
// scoring candidates so a single "higher wins" comparison settles ties.
type Vector struct {
	Delivered      int
	FreeTrucks     int
	NegDrivingTime int64
}

// Delta is a componentwise difference between two Vectors, A - B.
type Delta struct {
	D int
	F int
	T int64 // difference in NegDrivingTime: positive means A drives less
}

// Diff returns a - b componentwise.
func Diff(a, b Vector) Delta {
	return Delta{
		D: a.Delivered - b.Delivered,
		F: a.FreeTrucks - b.FreeTrucks,
		T: a.NegDrivingTime - b.NegDrivingTime,
	}
}

// Score is a pure function of a schedule (P6): computing it twice on equal
// schedules yields the same triple. It sums the driving time already spent
// on planned transitions plus the repositioning time implied by any
// unoccupied window that sits strictly between two of that truck's
// transitions and names two different terminals (I2). The window before a
// truck's first transition and the window after its last one are not
// repositioning: nothing in the horizon ever asks the truck to be anywhere
// else, so they are excluded regardless of their labels.
func Score(sched schedule.Schedule) Vector {
	var total int64
	for _, set := range sched.Transitions {
		for _, r := range set.Rows() {
			total += int64(sched.Ctx.DrivingTimeFn(r.Label.From, r.Label.To))
		}
	}
	for truck, set := range sched.Unoccupied {
		rows := sched.Transitions[truck].Rows()
		if len(rows) == 0 {
			continue
		}
		firstStart, lastEnd := rows[0].Start, rows[0].End
		for _, r := range rows[1:] {
			if r.Start < firstStart {
				firstStart = r.Start
			}
			if r.End > lastEnd {
				lastEnd = r.End
			}
		}
		for _, w := range set.Rows() {
			if w.End <= firstStart || w.Start >= lastEnd {
				continue
			}
			if w.Label.From != w.Label.To {
				total += int64(sched.Ctx.DrivingTimeFn(w.Label.From, w.Label.To))
			}
		}
	}
	return Vector{
		Delivered:      sched.DeliveredCargoCount(),
		FreeTrucks:     sched.FreeTruckCount(),
		NegDrivingTime: -total,
	}
}

// Better reports whether a is a strict improvement over b per spec.md §4.5:
// more deliveries wins outright; tied deliveries fall back to less total
// driving time; anything else falls back to the weighted tiebreaker.
func Better(a, b Vector) bool {
	d := Diff(a, b)
	if d.D > 0 {
		return true
	}
	if d.D == 0 && d.T > 0 {
		return true
	}
	return 3*float64(d.D)+0.5*float64(d.F)+float64(d.T) > 0
}
