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

// Package leaderboard periodically rebuilds the published standings from team
// state. The leaderboard is a materialized view: readers get a cheap point
// read, and a missed build only delays freshness, never correctness.
package leaderboard

import (
	"context"
	"time"

	"github.com/samber/lo"
	"k8s.io/utils/clock"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/catalog"
	"github.com/mailraid/mailraid/pkg/logging"
	"github.com/mailraid/mailraid/pkg/scoring"
	"github.com/mailraid/mailraid/pkg/storage"
)

type Controller struct {
	store    storage.Store
	model    scoring.Model
	clock    clock.Clock
	phase    int
	interval time.Duration
}

func NewController(store storage.Store, model scoring.Model, clk clock.Clock, phase int, interval time.Duration) *Controller {
	return &Controller{store: store, model: model, clock: clk, phase: phase, interval: interval}
}

// Start rebuilds the leaderboard once immediately and then on every interval
// until the context is canceled. Build failures are logged and retried on the
// next tick; the previous leaderboard stays published in the meantime.
func (c *Controller) Start(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("leaderboard")
	ctx = logging.WithLogger(ctx, logger)
	for {
		if err := c.Build(ctx); err != nil {
			logger.Errorf("building leaderboard, %s", err)
		}
		select {
		case <-ctx.Done():
			logger.Infof("Shutting down")
			return ctx.Err()
		case <-c.clock.After(c.interval):
		}
	}
}

// Build recomputes the standings for the active phase and publishes them.
func (c *Controller) Build(ctx context.Context) error {
	start := c.clock.Now()

	teams, err := c.store.ListTeams(ctx)
	if err != nil {
		return err
	}
	teams = lo.Reject(teams, func(t *apis.Team, _ int) bool { return t.Deleted })
	ordered := c.model.Order(teams, catalog.ActiveIDs(c.phase))

	if err := c.store.UpsertLeaderboard(ctx, &apis.Leaderboard{
		Phase:       c.phase,
		Teams:       lo.Map(ordered, func(t *apis.Team, _ int) string { return t.TeamID }),
		LastUpdated: apis.Timestamp(c.clock.Now()),
	}); err != nil {
		return err
	}
	buildDuration.Observe(c.clock.Since(start).Seconds())
	builds.Inc()
	return nil
}
