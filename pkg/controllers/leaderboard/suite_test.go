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

package leaderboard_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/controllers/leaderboard"
	"github.com/mailraid/mailraid/pkg/fake"
	"github.com/mailraid/mailraid/pkg/scoring"
	"github.com/mailraid/mailraid/pkg/test"
)

var (
	ctx        context.Context
	store      *fake.Store
	fakeClock  *clocktesting.FakeClock
	controller *leaderboard.Controller
)

func TestLeaderboard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Leaderboard")
}

var _ = BeforeEach(func() {
	ctx = context.Background()
	store = fake.NewStore()
	fakeClock = clocktesting.NewFakeClock(time.Now())
	controller = leaderboard.NewController(store, scoring.DefaultModel(), fakeClock, 1, 30*time.Second)
})

var _ = Describe("Build", func() {
	team := func(id string, solvedAt time.Time) *apis.Team {
		return test.Team(func(t *apis.Team) {
			t.TeamID = id
			t.RecordSolve("level1a", solvedAt)
		})
	}

	It("should publish teams ordered best-first", func() {
		base := fakeClock.Now()
		Expect(store.UpsertTeam(ctx, team("second", base.Add(time.Hour)))).To(Succeed())
		Expect(store.UpsertTeam(ctx, team("first", base))).To(Succeed())

		Expect(controller.Build(ctx)).To(Succeed())

		published, err := store.GetLeaderboard(ctx, 1)
		Expect(err).To(BeNil())
		Expect(published.Teams).To(Equal([]string{"first", "second"}))
		Expect(published.LastUpdated).To(Equal(apis.Timestamp(fakeClock.Now())))
	})

	It("should exclude deleted teams", func() {
		gone := team("gone", fakeClock.Now())
		gone.Deleted = true
		Expect(store.UpsertTeam(ctx, gone)).To(Succeed())
		Expect(store.UpsertTeam(ctx, team("alive", fakeClock.Now()))).To(Succeed())

		Expect(controller.Build(ctx)).To(Succeed())

		published, _ := store.GetLeaderboard(ctx, 1)
		Expect(published.Teams).To(Equal([]string{"alive"}))
	})

	It("should include disabled teams", func() {
		benched := team("benched", fakeClock.Now())
		benched.Disable()
		Expect(store.UpsertTeam(ctx, benched)).To(Succeed())

		Expect(controller.Build(ctx)).To(Succeed())

		published, _ := store.GetLeaderboard(ctx, 1)
		Expect(published.Teams).To(Equal([]string{"benched"}))
	})

	It("should overwrite the previous snapshot", func() {
		Expect(store.UpsertTeam(ctx, team("only", fakeClock.Now()))).To(Succeed())
		Expect(controller.Build(ctx)).To(Succeed())

		Expect(store.UpsertTeam(ctx, team("later", fakeClock.Now().Add(time.Hour)))).To(Succeed())
		fakeClock.Step(time.Minute)
		Expect(controller.Build(ctx)).To(Succeed())

		published, _ := store.GetLeaderboard(ctx, 1)
		Expect(published.Teams).To(Equal([]string{"only", "later"}))
		Expect(published.LastUpdated).To(Equal(apis.Timestamp(fakeClock.Now())))
	})

	It("should publish an empty snapshot when no teams exist", func() {
		Expect(controller.Build(ctx)).To(Succeed())

		published, err := store.GetLeaderboard(ctx, 1)
		Expect(err).To(BeNil())
		Expect(published.Teams).To(BeEmpty())
	})
})
