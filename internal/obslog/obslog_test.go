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

package obslog_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/xbe-inc/haulsched/internal/obslog"
)

func TestObslog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Obslog Suite")
}

var _ = Describe("From", func() {
	It("returns a no-op logger when none was stashed", func() {
		logger := obslog.From(context.Background())
		Expect(logger).NotTo(BeNil())
		logger.Info("should not panic")
	})

	It("returns the logger stashed by Into", func() {
		base := zap.NewNop()
		ctx := obslog.Into(context.Background(), base)
		Expect(obslog.From(ctx)).To(BeIdenticalTo(base))
	})
})

var _ = Describe("With", func() {
	It("appends fields without mutating the parent context's logger", func() {
		base := zap.NewNop()
		parent := obslog.Into(context.Background(), base)
		child := obslog.With(parent, zap.String("truck", "T0"))

		Expect(obslog.From(parent)).To(BeIdenticalTo(base))
		Expect(obslog.From(child)).NotTo(BeIdenticalTo(base))
	})
})
