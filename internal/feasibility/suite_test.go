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

package feasibility_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xbe-inc/haulsched/internal/feasibility"
	"github.com/xbe-inc/haulsched/internal/model"
)

func TestFeasibility(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Feasibility Suite")
}

const hour = 3600

func hours(h int64) model.Instant { return model.Instant(h * hour) }

func twoTerminalWorld(driveHours int64) ([]model.Terminal, []model.Truck, []model.TransportRequest, func(a, b model.ID) model.Duration) {
	terminals := []model.Terminal{
		{ID: "A", Open: hours(7), Close: hours(17)},
		{ID: "B", Open: hours(8), Close: hours(18)},
	}
	trucks := []model.Truck{{ID: "T0", StartingTerminal: "A", CapacityKilograms: 10000}}
	requests := []model.TransportRequest{{
		ID: "R0", Cargo: "c0", FromTerminal: "A", ToTerminal: "B",
		PickupOpen: hours(6), PickupClose: hours(8),
		DropoffOpen: hours(8), DropoffClose: hours(9),
		DrivingTime: model.Duration(driveHours * hour),
	}}
	dt := func(a, b model.ID) model.Duration {
		if a == b {
			return 0
		}
		return model.Duration(driveHours * hour)
	}
	return terminals, trucks, requests, dt
}

var _ = Describe("Build (scenario S1)", func() {
	It("clips the pickup window to terminal hours and derives a direct-delivery start interval", func() {
		terminals, trucks, requests, dt := twoTerminalWorld(1)
		ctx, err := feasibility.Build(terminals, trucks, requests, dt, hours(0), hours(24))
		Expect(err).NotTo(HaveOccurred())

		Expect(ctx.PickupIntervals.Len()).To(Equal(1))
		p := ctx.PickupIntervals.Rows()[0]
		Expect(p.Start).To(Equal(hours(7))) // clipped up to terminal A's open
		Expect(p.End).To(Equal(hours(8)))

		Expect(ctx.DirectDeliveryStart.Len()).To(Equal(1))
		d := ctx.DirectDeliveryStart.Rows()[0]
		Expect(d.Start).To(Equal(hours(7)))
		Expect(d.End).To(Equal(hours(8))) // dropoff close (9) shifted back by 1h driving time
		Expect(d.Label.From).To(Equal(model.ID("A")))
		Expect(d.Label.To).To(Equal(model.ID("B")))
	})
})

var _ = Describe("Build (scenario S3: incompatible driving time)", func() {
	It("produces an empty direct-delivery start interval", func() {
		terminals, trucks, requests, dt := twoTerminalWorld(3)
		requests[0].DropoffClose = hours(9)
		ctx, err := feasibility.Build(terminals, trucks, requests, dt, hours(0), hours(24))
		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.DirectDeliveryStart.Len()).To(Equal(0))
	})
})

var _ = Describe("Horizon", func() {
	It("is bounded by the planning period and the terminal/request windows", func() {
		terminals, trucks, requests, dt := twoTerminalWorld(1)
		ctx, err := feasibility.Build(terminals, trucks, requests, dt, hours(0), hours(24))
		Expect(err).NotTo(HaveOccurred())
		Expect(ctx.HorizonStart).To(Equal(hours(7)))
		Expect(ctx.HorizonEnd).To(Equal(hours(9)))
	})

	It("rejects a cargo with more than one transport request", func() {
		terminals, trucks, requests, dt := twoTerminalWorld(1)
		dup := requests[0]
		dup.ID = "R1"
		requests = append(requests, dup)
		_, err := feasibility.Build(terminals, trucks, requests, dt, hours(0), hours(24))
		Expect(err).To(HaveOccurred())
	})
})
