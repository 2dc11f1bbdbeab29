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

// Package feasibility derives, once per build, the read-only tables every
// Schedule in a search borrows: terminal open windows, pickup/dropoff
// windows clipped to terminal hours, and the direct-delivery start interval
// for each cargo. This is the build-time context of spec.md §3 — shared by
// reference across every Schedule produced during one search, the way the
// teacher's instance-type and offering caches are shared read-only across
// every scheduling attempt in one provisioning loop.
package feasibility

import (
	"fmt"

	"github.com/xbe-inc/haulsched/internal/interval"
	"github.com/xbe-inc/haulsched/internal/model"
)

// TerminalLabel tags a terminal's open window.
type TerminalLabel struct {
	Terminal model.ID
}

// PickupLabel tags a cargo's pickup window at its origin terminal.
type PickupLabel struct {
	Terminal    model.ID
	Cargo       model.ID
	DrivingTime model.Duration
}

// DropoffLabel tags a cargo's dropoff window at its destination terminal.
type DropoffLabel struct {
	Terminal    model.ID
	Cargo       model.ID
	DrivingTime model.Duration
}

// DirectDeliveryLabel tags the interval of instants at which a delivery for
// Cargo may commence and still land inside its dropoff window.
type DirectDeliveryLabel struct {
	Cargo       model.ID
	From        model.ID
	To          model.ID
	DrivingTime model.Duration
}

// Context is the immutable, build-time output every Schedule in a search
// borrows read-only.
type Context struct {
	TerminalOpen        interval.Set[TerminalLabel]
	PickupIntervals     interval.Set[PickupLabel]
	DropoffIntervals    interval.Set[DropoffLabel]
	DirectDeliveryStart interval.Set[DirectDeliveryLabel]
	DrivingTimeFn       func(from, to model.ID) model.Duration

	Terminals  map[model.ID]model.Terminal
	Trucks     []model.Truck
	TrucksByID map[model.ID]model.Truck
	Requests   map[model.ID]model.TransportRequest // keyed by cargo id

	HorizonStart model.Instant
	HorizonEnd   model.Instant
}

// Build derives a Context from the raw ingested tables per spec.md §4.2.
// It panics (via the interval package's InvariantViolation) if the raw
// inputs already violate interval invariants — that indicates ingest
// delivered malformed rows and is a programmer error, not a runtime
// condition the search can recover from.
func Build(
	terminals []model.Terminal,
	trucks []model.Truck,
	requests []model.TransportRequest,
	drivingTimeFn func(from, to model.ID) model.Duration,
	planningStart, planningEnd model.Instant,
) (*Context, error) {
	truckByID := make(map[model.ID]model.Truck, len(trucks))
	for _, t := range trucks {
		truckByID[t.ID] = t
	}

	terminalByID := make(map[model.ID]model.Terminal, len(terminals))
	var terminalRows []interval.Row[TerminalLabel]
	for _, t := range terminals {
		terminalByID[t.ID] = t
		terminalRows = append(terminalRows, interval.Row[TerminalLabel]{
			Start: t.Open, End: t.Close, Label: TerminalLabel{Terminal: t.ID},
		})
	}
	terminalOpen := interval.New(terminalRows)

	requestByCargo := make(map[model.ID]model.TransportRequest, len(requests))
	var pickupRows []interval.Row[PickupLabel]
	var dropoffRows []interval.Row[DropoffLabel]
	for _, r := range requests {
		if _, dup := requestByCargo[r.Cargo]; dup {
			return nil, fmt.Errorf("feasibility: cargo %q has more than one transport request", r.Cargo)
		}
		requestByCargo[r.Cargo] = r
		pickupRows = append(pickupRows, interval.Row[PickupLabel]{
			Start: r.PickupOpen, End: r.PickupClose,
			Label: PickupLabel{Terminal: r.FromTerminal, Cargo: r.Cargo, DrivingTime: r.DrivingTime},
		})
		dropoffRows = append(dropoffRows, interval.Row[DropoffLabel]{
			Start: r.DropoffOpen, End: r.DropoffClose,
			Label: DropoffLabel{Terminal: r.ToTerminal, Cargo: r.Cargo, DrivingTime: r.DrivingTime},
		})
	}
	pickupRaw := interval.New(pickupRows)
	dropoffRaw := interval.New(dropoffRows)

	pickupIntervals := interval.IntersectOnColumn(
		pickupRaw, terminalOpen,
		func(l PickupLabel) model.ID { return l.Terminal },
		func(l TerminalLabel) model.ID { return l.Terminal },
		func(p PickupLabel, _ TerminalLabel) PickupLabel { return p },
	)
	dropoffIntervals := interval.IntersectOnColumn(
		dropoffRaw, terminalOpen,
		func(l DropoffLabel) model.ID { return l.Terminal },
		func(l TerminalLabel) model.ID { return l.Terminal },
		func(d DropoffLabel, _ TerminalLabel) DropoffLabel { return d },
	)

	shiftedDropoff := dropoffIntervals.ShiftBy(
		func(l DropoffLabel) model.Duration { return -l.DrivingTime },
		true, true,
	)
	directDeliveryStart := interval.IntersectOnColumn(
		pickupIntervals, shiftedDropoff,
		func(l PickupLabel) model.ID { return l.Cargo },
		func(l DropoffLabel) model.ID { return l.Cargo },
		func(p PickupLabel, d DropoffLabel) DirectDeliveryLabel {
			return DirectDeliveryLabel{Cargo: p.Cargo, From: p.Terminal, To: d.Terminal, DrivingTime: p.DrivingTime}
		},
	)

	horizonStart := planningStart
	if e, ok := terminalOpen.Earliest(); ok && e > horizonStart {
		horizonStart = e
	}
	if e, ok := pickupIntervals.Earliest(); ok && e > horizonStart {
		horizonStart = e
	}

	horizonEnd := planningEnd
	if l, ok := terminalOpen.Latest(); ok && l < horizonEnd {
		horizonEnd = l
	}
	if l, ok := dropoffIntervals.Latest(); ok && l < horizonEnd {
		horizonEnd = l
	}

	return &Context{
		TerminalOpen:        terminalOpen,
		PickupIntervals:     pickupIntervals,
		DropoffIntervals:    dropoffIntervals,
		DirectDeliveryStart: directDeliveryStart,
		DrivingTimeFn:       drivingTimeFn,
		Terminals:           terminalByID,
		Trucks:              trucks,
		TrucksByID:          truckByID,
		Requests:            requestByCargo,
		HorizonStart:        horizonStart,
		HorizonEnd:          horizonEnd,
	}, nil
}
