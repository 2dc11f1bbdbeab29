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

package model

// Terminal is a container-handling site with a single daily open/close pair.
// Immutable after ingest.
type Terminal struct {
	ID        ID
	Open      Instant
	Close     Instant
	Latitude  float64
	Longitude float64
}

// Truck is a haulage vehicle starting the planning horizon at a fixed
// terminal. Immutable after ingest.
type Truck struct {
	ID                ID
	StartingTerminal  ID
	CapacityKilograms int64
	ADR               bool
}

// TransportRequest pairs a cargo with a pickup and dropoff leg. Immutable
// after ingest; requests with inverted windows never reach this type (they
// are dropped by ingest per the ingest contract).
type TransportRequest struct {
	ID             ID
	Cargo          ID
	FromTerminal   ID
	ToTerminal     ID
	PickupOpen     Instant
	PickupClose    Instant
	DropoffOpen    Instant
	DropoffClose   Instant
	DrivingTime    Duration
	WeightKilograms int64
	ADR            bool
}

// DrivingTimeTable maps an ordered pair of terminal ids to the duration of
// driving directly between them. Symmetric unless explicitly populated
// otherwise; self-distance is always zero.
type DrivingTimeTable struct {
	durations map[[2]ID]Duration
}

// NewDrivingTimeTable builds an empty table. Self-distances are implicit
// zero and need not be added.
func NewDrivingTimeTable() *DrivingTimeTable {
	return &DrivingTimeTable{durations: map[[2]ID]Duration{}}
}

// Set records the duration from -> to. It does not store the reverse
// direction, but Duration answers a to -> from lookup with this entry for
// as long as to -> from has no entry of its own.
func (t *DrivingTimeTable) Set(from, to ID, d Duration) {
	t.durations[[2]ID{from, to}] = d
}

// SetSymmetric records duration d for both directions between a and b.
func (t *DrivingTimeTable) SetSymmetric(a, b ID, d Duration) {
	t.Set(a, b, d)
	t.Set(b, a, d)
}

// Duration returns the driving time from -> to, falling back to the
// to -> from entry when only the reverse direction was set. Self-distance
// is always zero even if never explicitly set. A pair with no entry in
// either direction returns (0, false).
func (t *DrivingTimeTable) Duration(from, to ID) (Duration, bool) {
	if from == to {
		return 0, true
	}
	d, ok := t.durations[[2]ID{from, to}]
	if !ok {
		d, ok = t.durations[[2]ID{to, from}]
	}
	return d, ok
}

// Func adapts the table to the (ID, ID) -> Duration callback shape the core
// consumes, panicking if asked for a pair it has no entry for — a lookup
// miss at search time is a precomputation bug, not a runtime condition to
// recover from.
func (t *DrivingTimeTable) Func() func(from, to ID) Duration {
	return func(from, to ID) Duration {
		d, ok := t.Duration(from, to)
		if !ok {
			panic("model: no driving time entry for " + string(from) + " -> " + string(to))
		}
		return d
	}
}
