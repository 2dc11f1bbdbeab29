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

package distance_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xbe-inc/haulsched/internal/distance"
	"github.com/xbe-inc/haulsched/internal/model"
)

func TestDistance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Distance Suite")
}

var terminals = []model.Terminal{
	{ID: "A", Latitude: 52.0, Longitude: 4.0},
	{ID: "B", Latitude: 51.0, Longitude: 3.5},
}

var _ = Describe("Matrix", func() {
	It("parses a batched table response into a driving-time table", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"durations":[[0,3600],[3600,0]]}`))
		}))
		defer srv.Close()

		c := distance.NewClient(srv.URL)
		c.RetryAttempts = 1
		table, err := c.Matrix(context.Background(), terminals)
		Expect(err).NotTo(HaveOccurred())
		d, ok := table.Duration("A", "B")
		Expect(ok).To(BeTrue())
		Expect(d).To(Equal(model.Duration(3600)))
	})

	It("falls back to pairwise calls when the batch request fails", func() {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				// the first call is the batch attempt; reject it to force fallback.
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"durations":[[0,1800],[1800,0]]}`))
		}))
		defer srv.Close()

		c := distance.NewClient(srv.URL)
		c.RetryAttempts = 1
		table, err := c.Matrix(context.Background(), terminals)
		Expect(err).NotTo(HaveOccurred())
		d, ok := table.Duration("A", "B")
		Expect(ok).To(BeTrue())
		Expect(d).To(Equal(model.Duration(1800)))
	})

	It("returns an empty table for zero terminals", func() {
		c := distance.NewClient("http://unused.invalid")
		table, err := c.Matrix(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		_, ok := table.Duration("A", "B")
		Expect(ok).To(BeFalse())
	})
})
