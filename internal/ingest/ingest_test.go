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

package ingest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xbe-inc/haulsched/internal/ingest"
	"github.com/xbe-inc/haulsched/internal/model"
)

func TestIngest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ingest Suite")
}

func serve(t GinkgoTInterface, routes map[string]interface{}) (*ingest.Client, func()) {
	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			Expect(json.NewEncoder(w).Encode(body)).To(Succeed())
		})
	}
	srv := httptest.NewServer(mux)
	c := ingest.NewClient(srv.URL)
	c.RetryAttempts = 1
	return c, srv.Close
}

var _ = Describe("FetchTerminals", func() {
	It("decodes rows and drops blank ids", func() {
		c, done := serve(GinkgoT(), map[string]interface{}{
			"/terminals": []map[string]interface{}{
				{"id": "A", "open_seconds": 0, "close_seconds": 86400},
				{"id": "", "open_seconds": 0, "close_seconds": 86400},
			},
		})
		defer done()

		terminals, err := c.FetchTerminals(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(terminals).To(HaveLen(1))
		Expect(terminals[0].ID).To(Equal(model.ID("A")))
	})
})

var _ = Describe("FetchTrucks", func() {
	It("decodes rows", func() {
		c, done := serve(GinkgoT(), map[string]interface{}{
			"/trucks": []map[string]interface{}{
				{"id": "T0", "starting_terminal": "A", "capacity_kilograms": 10000, "adr": false},
			},
		})
		defer done()

		trucks, err := c.FetchTrucks(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(trucks).To(HaveLen(1))
		Expect(trucks[0].StartingTerminal).To(Equal(model.ID("A")))
	})
})

var _ = Describe("FetchRequests", func() {
	It("substitutes sentinel bounds for missing window fields", func() {
		c, done := serve(GinkgoT(), map[string]interface{}{
			"/requests": []map[string]interface{}{
				{
					"id": "R0", "cargo": "c0", "from_terminal": "A", "to_terminal": "B",
					"pickup_open_seconds": nil, "pickup_close_seconds": 36000,
					"dropoff_open_seconds": 7200, "dropoff_close_seconds": nil,
					"driving_time_seconds": 7200, "weight_kilograms": 500, "adr": false,
				},
			},
		})
		defer done()

		requests, err := c.FetchRequests(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(requests).To(HaveLen(1))
		Expect(requests[0].PickupOpen).To(Equal(ingest.Epoch))
		Expect(requests[0].DropoffClose).To(Equal(ingest.FarFuture))
	})

	It("drops a request with an inverted pickup window and counts it", func() {
		c, done := serve(GinkgoT(), map[string]interface{}{
			"/requests": []map[string]interface{}{
				{
					"id": "R0", "cargo": "c0", "from_terminal": "A", "to_terminal": "B",
					"pickup_open_seconds": 36000, "pickup_close_seconds": 0,
					"dropoff_open_seconds": 0, "dropoff_close_seconds": 36000,
					"driving_time_seconds": 7200, "weight_kilograms": 500, "adr": false,
				},
			},
		})
		defer done()

		requests, err := c.FetchRequests(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(requests).To(BeEmpty())
		Expect(testutil.ToFloat64(c.SkippedInverted)).To(Equal(1.0))
	})
})
