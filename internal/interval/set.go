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

// Package interval implements the homogeneous, tagged-interval container
// that every other core package is built on: a Set[L] holds rows of
// [Start, End) plus an arbitrary comparable label tuple L, sorted by Start,
// pairwise disjoint within any one label value. It is the one engine
// instantiated for transitions, unoccupied windows, and every feasibility
// table, the way the teacher's generic Batcher[I, O] is one engine
// instantiated for several AWS request/response shapes.
package interval

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/xbe-inc/haulsched/internal/model"
)

// Row is a single labelled interval.
type Row[L comparable] struct {
	Start model.Instant
	End   model.Instant
	Label L
}

// Set is an ordered, per-label non-overlapping collection of Rows. The zero
// value is a valid empty Set.
type Set[L comparable] struct {
	rows []Row[L]
}

// InvariantViolation is the error constructing or mutating a Set raises when
// the result would not satisfy I5 (sorted by start, pairwise disjoint per
// label). It is a programmer error: callers in the core never try to
// recover from it. New panics with it; Validate returns it as an ordinary
// error for a caller that checks rows before constructing a Set.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("interval: invariant violation: %s", e.Reason)
}

// Validate reports whether rows would form a valid Set once sorted by
// Start: every row has Start < End, and any two rows sharing a label are
// disjoint. It does not mutate rows.
func Validate[L comparable](rows []Row[L]) error {
	sorted := append([]Row[L](nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for _, r := range sorted {
		if !(r.Start < r.End) {
			return &InvariantViolation{Reason: fmt.Sprintf("start %d is not before end %d", r.Start, r.End)}
		}
	}

	lastEnd := map[L]model.Instant{}
	seen := map[L]bool{}
	for _, r := range sorted {
		if seen[r.Label] && lastEnd[r.Label] > r.Start {
			return &InvariantViolation{Reason: fmt.Sprintf("overlapping rows for label %v", r.Label)}
		}
		lastEnd[r.Label] = r.End
		seen[r.Label] = true
	}
	return nil
}

// New builds a Set from rows, sorting by Start. It panics with an
// *InvariantViolation if rows do not satisfy I5 — a Set is never allowed to
// exist in an inconsistent state.
func New[L comparable](rows []Row[L]) Set[L] {
	if err := Validate(rows); err != nil {
		panic(err)
	}
	sorted := append([]Row[L](nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return Set[L]{rows: sorted}
}

// NewFromRow is the degenerate single-row construction case.
func NewFromRow[L comparable](row Row[L]) Set[L] {
	return New([]Row[L]{row})
}

// Empty returns the zero-row Set.
func Empty[L comparable]() Set[L] {
	return Set[L]{}
}

// Rows returns a defensive copy of the underlying rows, in start order.
func (s Set[L]) Rows() []Row[L] {
	out := make([]Row[L], len(s.rows))
	copy(out, s.rows)
	return out
}

// Len reports the number of rows.
func (s Set[L]) Len() int { return len(s.rows) }

// Concat returns the union of s and other, re-sorted and re-validated.
func (s Set[L]) Concat(other Set[L]) Set[L] {
	if len(s.rows) == 0 {
		return other
	}
	if len(other.rows) == 0 {
		return s
	}
	merged := make([]Row[L], 0, len(s.rows)+len(other.rows))
	merged = append(merged, s.rows...)
	merged = append(merged, other.rows...)
	return New(merged)
}

// FilterPredicate keeps exactly the rows for which pred returns true. A
// subset of a valid sorted, disjoint Set is itself sorted and disjoint, so
// the result needs no re-validation.
func (s Set[L]) FilterPredicate(pred func(Row[L]) bool) Set[L] {
	return Set[L]{rows: lo.Filter(s.rows, func(r Row[L], _ int) bool { return pred(r) })}
}

// FilterColumn is the specialization of FilterPredicate that keeps rows
// whose label satisfies matches, ignoring the time bounds.
func (s Set[L]) FilterColumn(matches func(label L) bool) Set[L] {
	return s.FilterPredicate(func(r Row[L]) bool { return matches(r.Label) })
}

// ShiftBy returns a copy of s with every row's Start and/or End moved by
// f(row.Label). f must depend only on the label, never on Start or End,
// so that non-overlap per label is preserved; the result is re-validated.
func (s Set[L]) ShiftBy(f func(label L) model.Duration, shiftStart, shiftEnd bool) Set[L] {
	rows := make([]Row[L], len(s.rows))
	for i, r := range s.rows {
		d := f(r.Label)
		nr := r
		if shiftStart {
			nr.Start = r.Start.Add(d)
		}
		if shiftEnd {
			nr.End = r.End.Add(d)
		}
		rows[i] = nr
	}
	return New(rows)
}

// LimitTime clamps every row's Start up to lo and End down to hi, dropping
// rows that become empty or inverted. Idempotent (R2): clamping an
// already-clamped Set a second time to the same bounds changes nothing.
func (s Set[L]) LimitTime(lo, hi model.Instant) Set[L] {
	rows := make([]Row[L], 0, len(s.rows))
	for _, r := range s.rows {
		start, end := r.Start, r.End
		if start < lo {
			start = lo
		}
		if end > hi {
			end = hi
		}
		if start < end {
			rows = append(rows, Row[L]{Start: start, End: end, Label: r.Label})
		}
	}
	return Set[L]{rows: rows}
}

// ExtractInterval finds the unique row with Start <= start and end <= End,
// removes it, and returns it along with the resulting Set. It reports
// ErrNotFound or ErrNotUnique rather than panicking: a stale candidate
// referencing a window that has since split or merged is an expected,
// recoverable condition for the neighbour generator, not a programmer error.
func (s Set[L]) ExtractInterval(start, end model.Instant) (Row[L], Set[L], error) {
	matchIdx := -1
	matches := 0
	for i, r := range s.rows {
		if r.Start <= start && end <= r.End {
			matches++
			matchIdx = i
		}
	}
	switch matches {
	case 0:
		return Row[L]{}, s, ErrNotFound
	case 1:
		removed := s.rows[matchIdx]
		rest := make([]Row[L], 0, len(s.rows)-1)
		rest = append(rest, s.rows[:matchIdx]...)
		rest = append(rest, s.rows[matchIdx+1:]...)
		return removed, Set[L]{rows: rest}, nil
	default:
		return Row[L]{}, s, ErrNotUnique
	}
}

// Earliest returns the smallest Start across all rows.
func (s Set[L]) Earliest() (model.Instant, bool) {
	if len(s.rows) == 0 {
		return 0, false
	}
	return s.rows[0].Start, true
}

// Latest returns the largest End across all rows.
func (s Set[L]) Latest() (model.Instant, bool) {
	if len(s.rows) == 0 {
		return 0, false
	}
	max := s.rows[0].End
	for _, r := range s.rows[1:] {
		if r.End > max {
			max = r.End
		}
	}
	return max, true
}

// Copy returns an independent Set with the same rows (R4 for IntervalSet
// itself; Schedule.Copy composes this per truck).
func (s Set[L]) Copy() Set[L] {
	return Set[L]{rows: append([]Row[L](nil), s.rows...)}
}

// IntersectOnColumn joins self against other on a key derived from each
// side's label, clipping each matching pair to their time intersection.
// combine builds the output label from the two matched labels. It is
// O(len(self) * len(other)) in this naive form, as allowed by the spec.
func IntersectOnColumn[L comparable, M comparable, K comparable, O comparable](
	self Set[L],
	other Set[M],
	selfKey func(L) K,
	otherKey func(M) K,
	combine func(selfLabel L, otherLabel M) O,
) Set[O] {
	var rows []Row[O]
	for _, r := range self.rows {
		k := selfKey(r.Label)
		for _, o := range other.rows {
			if otherKey(o.Label) != k {
				continue
			}
			start, end := r.Start, r.End
			if o.Start > start {
				start = o.Start
			}
			if o.End < end {
				end = o.End
			}
			if start < end {
				rows = append(rows, Row[O]{Start: start, End: end, Label: combine(r.Label, o.Label)})
			}
		}
	}
	return New(rows)
}
