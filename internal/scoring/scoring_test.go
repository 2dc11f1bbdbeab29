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

package scoring_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xbe-inc/haulsched/internal/feasibility"
	"github.com/xbe-inc/haulsched/internal/interval"
	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/neighbour"
	"github.com/xbe-inc/haulsched/internal/schedule"
	"github.com/xbe-inc/haulsched/internal/scoring"
)

func TestScoring(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scoring Suite")
}

const hour = 3600

func hours(h int64) model.Instant { return model.Instant(h * hour) }

func buildCtx() *feasibility.Context {
	terminals := []model.Terminal{
		{ID: "A", Open: hours(0), Close: hours(24)},
		{ID: "B", Open: hours(0), Close: hours(24)},
	}
	trucks := []model.Truck{{ID: "T0", StartingTerminal: "A", CapacityKilograms: 10000}}
	requests := []model.TransportRequest{{
		ID: "R0", Cargo: "c0", FromTerminal: "A", ToTerminal: "B",
		PickupOpen: hours(0), PickupClose: hours(10),
		DropoffOpen: hours(2), DropoffClose: hours(20),
		DrivingTime: model.Duration(2 * hour),
	}}
	dt := func(a, b model.ID) model.Duration {
		if a == b {
			return 0
		}
		return model.Duration(2 * hour)
	}
	ctx, err := feasibility.Build(terminals, trucks, requests, dt, hours(0), hours(24))
	Expect(err).NotTo(HaveOccurred())
	return ctx
}

var _ = Describe("Score", func() {
	It("counts delivered cargo, free trucks and negated driving time", func() {
		ctx := buildCtx()
		s := schedule.NewEmpty(ctx)

		empty := scoring.Score(s)
		Expect(empty.Delivered).To(Equal(0))
		Expect(empty.FreeTrucks).To(Equal(1))
		Expect(empty.NegDrivingTime).To(Equal(int64(0)))

		s.Transitions["T0"] = interval.NewFromRow(interval.Row[schedule.TransitionLabel]{
			Start: hours(0), End: hours(2),
			Label: schedule.TransitionLabel{From: "A", To: "B", Cargo: "c0"},
		})
		loaded := scoring.Score(s)
		Expect(loaded.Delivered).To(Equal(1))
		Expect(loaded.FreeTrucks).To(Equal(0))
		Expect(loaded.NegDrivingTime).To(Equal(-int64(2 * hour)))
	})
})

var _ = Describe("Score on a generator-produced schedule", func() {
	It("does not charge repositioning for the trailing window after a truck's last transition (S1)", func() {
		terminals := []model.Terminal{
			{ID: "A", Open: hours(7), Close: hours(17)},
			{ID: "B", Open: hours(8), Close: hours(18)},
		}
		trucks := []model.Truck{{ID: "T0", StartingTerminal: "A", CapacityKilograms: 10000}}
		requests := []model.TransportRequest{{
			ID: "R0", Cargo: "c0", FromTerminal: "A", ToTerminal: "B",
			PickupOpen: hours(6), PickupClose: hours(8),
			DropoffOpen: hours(8), DropoffClose: hours(9),
			DrivingTime: model.Duration(1 * hour),
		}}
		dt := func(a, b model.ID) model.Duration {
			if a == b {
				return 0
			}
			return model.Duration(1 * hour)
		}
		gen, err := neighbour.BuildGenerator(terminals, trucks, requests, dt, hours(7), hours(17))
		Expect(err).NotTo(HaveOccurred())

		sched := gen.EmptySchedule()
		Expect(sched.Candidates["T0"]).To(HaveLen(2)) // earliest (07:00) and latest (08:00)

		var earliest schedule.Mutation
		haveEarliest := false
		for _, c := range sched.Candidates["T0"] {
			if c.Kind == schedule.MutationAdd && (!haveEarliest || c.Start < earliest.Start) {
				earliest = c
				haveEarliest = true
			}
		}
		Expect(haveEarliest).To(BeTrue())
		Expect(earliest.Start).To(Equal(hours(7)))

		next, err := gen.Apply(sched, "T0", earliest)
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Unplanned.Len()).To(Equal(0))

		score := scoring.Score(next)
		Expect(score).To(Equal(scoring.Vector{Delivered: 1, FreeTrucks: 0, NegDrivingTime: -int64(hour)}))
	})
})

var _ = Describe("ComputeReport", func() {
	It("derives per-truck utilisation and deliveries-per-hour from a solved schedule", func() {
		ctx := buildCtx()
		s := schedule.NewEmpty(ctx)
		s.Transitions["T0"] = interval.NewFromRow(interval.Row[schedule.TransitionLabel]{
			Start: hours(0), End: hours(2),
			Label: schedule.TransitionLabel{From: "A", To: "B", Cargo: "c0"},
		})
		s.Unplanned.Delete("c0")

		report := scoring.ComputeReport(s)
		Expect(report.Delivered).To(Equal(1))
		Expect(report.Unplanned).To(Equal(0))
		Expect(report.Trucks).To(HaveLen(1))
		Expect(report.Trucks[0].Truck).To(Equal(model.ID("T0")))
		Expect(report.Trucks[0].DeliveriesCompleted).To(Equal(1))
		Expect(report.Trucks[0].DrivingFraction).To(BeNumerically("~", 0.1, 0.001))
	})
})

var _ = Describe("Better", func() {
	It("prefers strictly more deliveries, while the weighted tiebreaker can still rank fewer deliveries higher", func() {
		a := scoring.Vector{Delivered: 2, FreeTrucks: 0, NegDrivingTime: -1000}
		b := scoring.Vector{Delivered: 1, FreeTrucks: 5, NegDrivingTime: 0}
		Expect(scoring.Better(a, b)).To(BeTrue())
		// 3*(-1) + 0.5*5 + 1000 = 999.5 > 0
		Expect(scoring.Better(b, a)).To(BeTrue())
	})

	It("falls back to less driving time on tied deliveries", func() {
		a := scoring.Vector{Delivered: 1, FreeTrucks: 0, NegDrivingTime: -100}
		b := scoring.Vector{Delivered: 1, FreeTrucks: 0, NegDrivingTime: -200}
		Expect(scoring.Better(a, b)).To(BeTrue())
	})

	It("is irreflexive", func() {
		v := scoring.Vector{Delivered: 1, FreeTrucks: 1, NegDrivingTime: -50}
		Expect(scoring.Better(v, v)).To(BeFalse())
	})
})

var _ = Describe("Score determinism", func() {
	It("produces a structurally identical vector across repeated calls", func() {
		ctx := buildCtx()
		s := schedule.NewEmpty(ctx)
		s.Transitions["T0"] = interval.NewFromRow(interval.Row[schedule.TransitionLabel]{
			Start: hours(0), End: hours(2),
			Label: schedule.TransitionLabel{From: "A", To: "B", Cargo: "c0"},
		})

		first := scoring.Score(s)
		second := scoring.Score(s)
		if diff := cmp.Diff(first, second); diff != "" {
			Fail("Score is not deterministic (-first +second):\n" + diff)
		}
	})
})
