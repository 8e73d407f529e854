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
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mailraid/mailraid/pkg/operator/options"
)

func TestOptions(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Options")
}

var _ = Describe("Validate", func() {
	var opts *options.Options

	BeforeEach(func() {
		opts = options.New()
	})

	It("should accept the defaults", func() {
		Expect(opts.Validate()).To(Succeed())
		Expect(opts.Phase).To(Equal(1))
		Expect(opts.RateLimitBurst).To(Equal(10))
		Expect(opts.EndTime()).To(BeTemporally(">", opts.LaunchTime()))
	})

	It("should parse flags over defaults", func() {
		Expect(opts.Parse([]string{"--phase", "2", "--rate-limit-burst", "20"})).To(Succeed())
		Expect(opts.Validate()).To(Succeed())
		Expect(opts.Phase).To(Equal(2))
		Expect(opts.RateLimitBurst).To(Equal(20))
	})

	It("should reject an unknown phase", func() {
		opts.Phase = 3
		Expect(opts.Validate()).ToNot(Succeed())
	})

	It("should reject non-positive rate limit parameters", func() {
		opts.RateLimitSustained = 0
		opts.RateLimitBurst = -1
		err := opts.Validate()
		Expect(err).ToNot(BeNil())
		Expect(err.Error()).To(ContainSubstring("RATE_LIMIT_SUSTAINED"))
		Expect(err.Error()).To(ContainSubstring("RATE_LIMIT_BURST"))
	})

	It("should reject an unparseable launch date", func() {
		opts.LaunchDate = "soon"
		Expect(opts.Validate()).ToNot(Succeed())
	})

	It("should reject an end date before the launch date", func() {
		opts.LaunchDate = "2025-04-17T11:59:00Z"
		opts.EndDate = "2025-03-13T11:00:00Z"
		Expect(opts.Validate()).ToNot(Succeed())
	})

	It("should expose the parsed competition window", func() {
		opts.LaunchDate = "2025-03-13T11:00:00Z"
		opts.EndDate = "2025-04-17T11:59:00Z"
		Expect(opts.Validate()).To(Succeed())
		Expect(opts.LaunchTime()).To(BeTemporally("==", time.Date(2025, 3, 13, 11, 0, 0, 0, time.UTC)))
		Expect(opts.EndTime()).To(BeTemporally("==", time.Date(2025, 4, 17, 11, 59, 0, 0, time.UTC)))
	})

	It("should reject a non-positive leaderboard interval", func() {
		opts.LeaderboardInterval = 0
		Expect(opts.Validate()).ToNot(Succeed())
	})
})
