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

// Package model holds the static, ingest-time entities the scheduling core
// is built from: terminals, trucks, transport requests, and the driving-time
// table between terminals.
package model

// ID identifies a terminal, truck, cargo, or transport request. It is a
// plain string so it remains a normal map/comparison key; there is no
// nullable id type anywhere in this model.
type ID string

// Invalid is the sentinel for "no such id". It is never produced by ingest
// for a real entity and is used in place of a nullable id field.
const Invalid ID = ""

// Instant is a monotonic, second-resolution timestamp, counted from an
// arbitrary epoch agreed on by every component that exchanges them.
type Instant int64

// Duration is a signed difference between two Instants.
type Duration int64

// Before reports whether i happens strictly before o.
func (i Instant) Before(o Instant) bool { return i < o }

// Add returns the instant d after i. d may be negative.
func (i Instant) Add(d Duration) Instant { return Instant(int64(i) + int64(d)) }

// Sub returns the duration from o to i (i - o).
func (i Instant) Sub(o Instant) Duration { return Duration(int64(i) - int64(o)) }
