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

package scoring

import (
	"sort"

	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/schedule"
)

// TruckUtilisation is one truck's post-hoc utilisation figures over a solved
// schedule's horizon.
type TruckUtilisation struct {
	Truck               model.ID
	DeliveriesCompleted int
	DrivingFraction     float64
	IdleFraction        float64
}

// Report is aggregate post-hoc statistics over a solved Schedule: idle time
// and deliveries-per-hour figures that `solve --report` prints alongside
// the raw score vector. Grounded on the Python original's utilitycalc.py,
// which derives analogous per-truck idle/work time and per-order lateness
// penalties from a solved route plan.
type Report struct {
	Delivered         int
	Unplanned         int
	DeliveriesPerHour float64
	Trucks            []TruckUtilisation
}

// ComputeReport derives a Report from a solved schedule. It is read-only and
// has no effect on the schedule's score, which remains whatever Score
// computed during the search.
func ComputeReport(sched schedule.Schedule) Report {
	horizon := sched.Ctx.HorizonEnd - sched.Ctx.HorizonStart
	horizonHours := float64(horizon) / 3600.0

	trucks := make([]TruckUtilisation, 0, len(sched.Transitions))
	for truck, transitions := range sched.Transitions {
		var driving int64
		for _, t := range transitions.Rows() {
			driving += int64(t.End - t.Start)
		}
		var drivingFraction float64
		if horizon > 0 {
			drivingFraction = float64(driving) / float64(horizon)
		}
		trucks = append(trucks, TruckUtilisation{
			Truck:               truck,
			DeliveriesCompleted: transitions.Len(),
			DrivingFraction:     drivingFraction,
			IdleFraction:        1 - drivingFraction,
		})
	}
	sort.Slice(trucks, func(i, j int) bool { return trucks[i].Truck < trucks[j].Truck })

	delivered := sched.DeliveredCargoCount()
	var perHour float64
	if horizonHours > 0 {
		perHour = float64(delivered) / horizonHours
	}

	return Report{
		Delivered:         delivered,
		Unplanned:         sched.Unplanned.Len(),
		DeliveriesPerHour: perHour,
		Trucks:            trucks,
	}
}
