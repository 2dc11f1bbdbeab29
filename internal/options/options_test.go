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

package options_test

import (
	"context"
	"flag"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xbe-inc/haulsched/internal/options"
)

func TestOptions(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Options Suite")
}

func parse(args ...string) *options.Options {
	o := &options.Options{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o.AddFlags(fs)
	Expect(fs.Parse(args)).To(Succeed())
	return o
}

var _ = Describe("AddFlags", func() {
	It("applies defaults when no flags are passed", func() {
		o := parse()
		Expect(o.CacheDBPath).To(Equal("haulsched-cache.sqlite"))
		Expect(o.Iterations).To(Equal(10000))
		Expect(o.T0).To(BeNumerically(">", o.Tf))
	})

	It("overrides defaults from explicit flags", func() {
		o := parse("-ingest-base-url=https://ingest.example.com", "-iterations=42", "-use-tabu=true")
		Expect(o.IngestBaseURL).To(Equal("https://ingest.example.com"))
		Expect(o.Iterations).To(Equal(42))
		Expect(o.UseTabu).To(BeTrue())
	})

	It("parses the planning window from RFC3339 flags", func() {
		o := parse("-planning-start=2026-01-01T00:00:00Z", "-planning-end=2026-01-02T00:00:00Z")
		Expect(o.PlanningStart).To(Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
		Expect(o.PlanningEnd).To(Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	})
})

var _ = Describe("Validate", func() {
	It("rejects a missing ingest base URL", func() {
		o := parse()
		Expect(o.Validate()).To(MatchError(ContainSubstring("ingest-base-url")))
	})

	It("rejects t0 <= tf", func() {
		o := parse("-ingest-base-url=https://ingest.example.com", "-t0=1", "-tf=10")
		Expect(o.Validate()).To(MatchError(ContainSubstring("t0")))
	})

	It("accepts a fully specified, valid configuration", func() {
		o := parse(
			"-ingest-base-url=https://ingest.example.com",
			"-planning-start=2026-01-01T00:00:00Z",
			"-planning-end=2026-01-02T00:00:00Z",
		)
		Expect(o.Validate()).To(Succeed())
	})
})

var _ = Describe("Into/From", func() {
	It("round-trips Options through a context", func() {
		o := &options.Options{IngestBaseURL: "https://ingest.example.com"}
		ctx := options.Into(context.Background(), o)
		Expect(options.From(ctx)).To(BeIdenticalTo(o))
	})

	It("panics when no Options was stashed", func() {
		Expect(func() { options.From(context.Background()) }).To(Panic())
	})
})
