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

package deadletter_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/controllers/deadletter"
	"github.com/mailraid/mailraid/pkg/fake"
	"github.com/mailraid/mailraid/pkg/queues"
	"github.com/mailraid/mailraid/pkg/test"
)

var (
	ctx        context.Context
	store      *fake.Store
	queue      *fake.Queue
	fakeClock  *clocktesting.FakeClock
	controller *deadletter.Controller
)

func TestDeadLetter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DeadLetter")
}

var _ = BeforeEach(func() {
	ctx = context.Background()
	store = fake.NewStore()
	queue = fake.NewQueue(queues.QueueDeadLetter)
	fakeClock = clocktesting.NewFakeClock(time.Now())
	controller = deadletter.NewController(store, queue, fakeClock)
})

var _ = Describe("Poll", func() {
	var job *apis.JobRecord

	BeforeEach(func() {
		job = test.Job("team-1", "level1a")
		Expect(store.UpsertJob(ctx, job)).To(Succeed())
	})

	It("should finalize a pending job as failed", func() {
		_, err := queue.SendMessage(ctx, job.BuildMessage(ctx))
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())

		stored, err := store.GetJob(ctx, job.TeamID, job.JobID)
		Expect(err).To(BeNil())
		Expect(stored.Completed()).To(BeTrue())
		Expect(lo.FromPtr(stored.StartedTime)).To(Equal(lo.FromPtr(stored.CompletedTime)))
		Expect(lo.FromPtr(stored.CompletedTime)).To(Equal(apis.Timestamp(fakeClock.Now())))
		Expect(stored.Objectives).To(BeEmpty())
		Expect(stored.Solved()).To(BeFalse())
		Expect(lo.FromPtr(stored.Output)).To(HavePrefix("Job failed to process after multiple attempts"))
		Expect(lo.FromPtr(stored.Output)).To(ContainSubstring(job.JobID))
		Expect(queue.Depth()).To(Equal(0))
	})

	It("should leave a completed job untouched", func() {
		job.CompletedTime = lo.ToPtr(apis.Timestamp(fakeClock.Now()))
		job.Output = lo.ToPtr("the worker verdict")
		Expect(store.UpsertJob(ctx, job)).To(Succeed())

		_, err := queue.SendMessage(ctx, job.BuildMessage(ctx))
		Expect(err).To(BeNil())
		Expect(controller.Poll(ctx)).To(Succeed())

		stored, _ := store.GetJob(ctx, job.TeamID, job.JobID)
		Expect(lo.FromPtr(stored.Output)).To(Equal("the worker verdict"))
		Expect(queue.Depth()).To(Equal(0))
	})

	It("should drop a message for an unknown job", func() {
		_, err := queue.SendMessage(ctx, test.Job("team-1", "level1a").BuildMessage(ctx))
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())
		Expect(queue.Depth()).To(Equal(0))
	})

	It("should discard a message that does not parse", func() {
		_, err := queue.SendMessage(ctx, "not a job message")
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())
		Expect(queue.Depth()).To(Equal(0))
	})
})
