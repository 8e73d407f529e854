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

package results_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/controllers/results"
	"github.com/mailraid/mailraid/pkg/fake"
	"github.com/mailraid/mailraid/pkg/queues"
	"github.com/mailraid/mailraid/pkg/test"
)

var (
	ctx        context.Context
	store      *fake.Store
	queue      *fake.Queue
	fakeClock  *clocktesting.FakeClock
	controller *results.Controller
)

func TestResults(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Results")
}

var _ = BeforeEach(func() {
	ctx = context.Background()
	store = fake.NewStore()
	queue = fake.NewQueue(queues.QueueResults)
	fakeClock = clocktesting.NewFakeClock(time.Now())
	controller = results.NewController(store, queue, fakeClock)
})

var _ = Describe("Poll", func() {
	var (
		team     *apis.Team
		scenario *apis.Scenario
		job      *apis.JobRecord
	)

	BeforeEach(func() {
		team = test.Team()
		scenario = test.Scenario()
		job = test.Job(team.TeamID, scenario.ScenarioID)
		Expect(store.UpsertTeam(ctx, team)).To(Succeed())
		Expect(store.UpsertScenario(ctx, scenario)).To(Succeed())
		Expect(store.UpsertJob(ctx, job)).To(Succeed())
	})

	It("should complete the job and credit the solve", func() {
		result := test.Result(job)
		_, err := queue.SendMessage(ctx, result)
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())

		stored, err := store.GetJob(ctx, team.TeamID, job.JobID)
		Expect(err).To(BeNil())
		Expect(stored.Completed()).To(BeTrue())
		Expect(lo.FromPtr(stored.Output)).To(Equal(result.Output))
		Expect(stored.Objectives).To(Equal(result.Objectives))

		storedTeam, err := store.GetTeam(ctx, team.TeamID)
		Expect(err).To(BeNil())
		Expect(storedTeam.SolvedScenarios).To(ConsistOf(scenario.ScenarioID))
		Expect(storedTeam.SolutionDetails).To(HaveKey(scenario.ScenarioID))

		storedScenario, err := store.GetScenario(ctx, scenario.ScenarioID)
		Expect(err).To(BeNil())
		Expect(storedScenario.Solves).To(Equal(1))

		Expect(queue.Depth()).To(Equal(0))
	})

	It("should stamp the solve with its own clock, not the worker's completion time", func() {
		reported := fakeClock.Now().Add(-time.Hour)
		_, err := queue.SendMessage(ctx, test.Result(job, func(r *apis.JobResult) {
			r.CompletedTime = apis.Timestamp(reported)
		}))
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())

		// The job keeps the worker's verdict verbatim, but the solve rank
		// input is the consumer's wall clock.
		stored, _ := store.GetJob(ctx, team.TeamID, job.JobID)
		Expect(lo.FromPtr(stored.CompletedTime)).To(Equal(apis.Timestamp(reported)))

		storedTeam, _ := store.GetTeam(ctx, team.TeamID)
		Expect(storedTeam.SolutionDetails).To(HaveKeyWithValue(scenario.ScenarioID, apis.Timestamp(fakeClock.Now())))
	})

	It("should not credit a job with a failed objective", func() {
		_, err := queue.SendMessage(ctx, test.Result(job, func(r *apis.JobResult) {
			r.Objectives["exfil.sent"] = false
		}))
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())

		stored, _ := store.GetJob(ctx, team.TeamID, job.JobID)
		Expect(stored.Completed()).To(BeTrue())

		storedTeam, _ := store.GetTeam(ctx, team.TeamID)
		Expect(storedTeam.SolvedScenarios).To(BeEmpty())
	})

	It("should credit a duplicated result exactly once", func() {
		result := test.Result(job)
		for i := 0; i < 3; i++ {
			_, err := queue.SendMessage(ctx, result)
			Expect(err).To(BeNil())
		}

		Expect(controller.Poll(ctx)).To(Succeed())

		storedTeam, _ := store.GetTeam(ctx, team.TeamID)
		Expect(storedTeam.SolvedScenarios).To(HaveLen(1))

		storedScenario, _ := store.GetScenario(ctx, scenario.ScenarioID)
		Expect(storedScenario.Solves).To(Equal(1))
		Expect(queue.Depth()).To(Equal(0))
	})

	It("should not overwrite a completed job", func() {
		first := test.Result(job, func(r *apis.JobResult) { r.Output = "first verdict" })
		_, err := queue.SendMessage(ctx, first)
		Expect(err).To(BeNil())
		Expect(controller.Poll(ctx)).To(Succeed())

		_, err = queue.SendMessage(ctx, test.Result(job, func(r *apis.JobResult) { r.Output = "second verdict" }))
		Expect(err).To(BeNil())
		Expect(controller.Poll(ctx)).To(Succeed())

		stored, _ := store.GetJob(ctx, team.TeamID, job.JobID)
		Expect(lo.FromPtr(stored.Output)).To(Equal("first verdict"))
	})

	It("should drop a result for an unknown job", func() {
		unknown := test.Job(team.TeamID, scenario.ScenarioID)
		_, err := queue.SendMessage(ctx, test.Result(unknown))
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())
		Expect(queue.Depth()).To(Equal(0))
	})

	It("should complete the job without crediting a disabled team", func() {
		team.Disable()
		Expect(store.UpsertTeam(ctx, team)).To(Succeed())

		_, err := queue.SendMessage(ctx, test.Result(job))
		Expect(err).To(BeNil())
		Expect(controller.Poll(ctx)).To(Succeed())

		stored, _ := store.GetJob(ctx, team.TeamID, job.JobID)
		Expect(stored.Completed()).To(BeTrue())

		storedTeam, _ := store.GetTeam(ctx, team.TeamID)
		Expect(storedTeam.SolvedScenarios).To(BeEmpty())
		Expect(queue.Depth()).To(Equal(0))
	})

	It("should discard a message that does not parse", func() {
		_, err := queue.SendMessage(ctx, "not a result")
		Expect(err).To(BeNil())

		Expect(controller.Poll(ctx)).To(Succeed())
		Expect(queue.Depth()).To(Equal(0))
	})

	It("should leave the message pending when storage fails", func() {
		_, err := queue.SendMessage(ctx, test.Result(job))
		Expect(err).To(BeNil())

		store.NextError.Set(errors.New("throttled"))
		Expect(controller.Poll(ctx)).ToNot(Succeed())

		// The visibility timeout redelivers; the next poll succeeds.
		Expect(queue.Depth()).To(Equal(1))
		Expect(controller.Poll(ctx)).To(Succeed())
		Expect(queue.Depth()).To(Equal(0))

		storedTeam, _ := store.GetTeam(ctx, team.TeamID)
		Expect(storedTeam.SolvedScenarios).To(ConsistOf(scenario.ScenarioID))
	})
})
