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

// Package results consumes worker verdicts from the results queue and folds
// them into job and team state. Reconciliation is idempotent on the job's
// CompletedTime so redelivered or duplicated results cannot double-credit.
package results

import (
	"context"
	"encoding/json"
	"time"

	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"k8s.io/utils/clock"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/logging"
	"github.com/mailraid/mailraid/pkg/queues"
	"github.com/mailraid/mailraid/pkg/storage"
)

// pollingPeriod between drains of the results queue. Receives long-poll on
// top of this, so the effective cadence is dominated by queue traffic.
const pollingPeriod = 2 * time.Second

// Controller drains the results queue. It is deliberately not request-scoped:
// one instance polls for the life of the process.
type Controller struct {
	store storage.Store
	queue queues.Provider
	clock clock.Clock
}

func NewController(store storage.Store, queue queues.Provider, clk clock.Clock) *Controller {
	return &Controller{store: store, queue: queue, clock: clk}
}

// Start polls until the context is canceled.
func (c *Controller) Start(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("results")
	ctx = logging.WithLogger(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Shutting down")
			return ctx.Err()
		case <-time.After(pollingPeriod):
			if err := c.Poll(ctx); err != nil {
				logger.Errorf("polling results queue, %s", err)
			}
		}
	}
}

// Poll drains one batch of messages. Messages that fail reconciliation are
// not deleted so the visibility timeout redelivers them.
func (c *Controller) Poll(ctx context.Context) (err error) {
	messages, e := c.queue.GetMessages(ctx)
	if e != nil {
		return e
	}
	for _, msg := range messages {
		err = multierr.Append(err, c.handleMessage(ctx, msg))
	}
	return err
}

func (c *Controller) handleMessage(ctx context.Context, msg sqstypes.Message) error {
	receivedMessages.Inc()
	if msg.Body == nil {
		return c.ack(ctx, msg)
	}
	result := &apis.JobResult{}
	if err := json.Unmarshal([]byte(*msg.Body), result); err != nil {
		// A result that never parses will never parse. Drop it rather than
		// poison the queue.
		logging.FromContext(ctx).Errorf("discarding unparseable result message, %s", err)
		discardedMessages.Inc()
		return c.ack(ctx, msg)
	}
	ctx = result.ExtractTraceContext(ctx)
	if err := c.reconcile(ctx, result); err != nil {
		return err
	}
	return c.ack(ctx, msg)
}

func (c *Controller) reconcile(ctx context.Context, result *apis.JobResult) error {
	logger := logging.FromContext(ctx)

	job, err := c.store.GetJob(ctx, result.TeamID, result.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.Warnf("received a result for unknown job %s, dropping it", result.JobID)
		discardedMessages.Inc()
		return nil
	}
	if job.Completed() {
		// Redelivery or a duplicate worker. First write wins.
		return nil
	}

	job.StartedTime = lo.ToPtr(result.StartedTime)
	job.CompletedTime = lo.ToPtr(result.CompletedTime)
	job.Output = lo.ToPtr(result.Output)
	job.Objectives = result.Objectives
	if err := c.store.UpsertJob(ctx, job); err != nil {
		return err
	}
	completedJobs.Inc()

	if !job.Solved() {
		return nil
	}
	return c.creditSolve(ctx, job)
}

func (c *Controller) creditSolve(ctx context.Context, job *apis.JobRecord) error {
	logger := logging.FromContext(ctx)

	team, err := c.store.GetTeam(ctx, job.TeamID)
	if err != nil {
		return err
	}
	if team == nil || !team.IsEnabled {
		logger.Warnf("not crediting solve of %s, team %s is missing or disabled", job.Scenario, job.TeamID)
		return nil
	}
	if team.HasSolved(job.Scenario) {
		return nil
	}

	// Solve timestamps feed the scoring model's rank ordering, so they come
	// from our clock at crediting time. Worker-reported completion times are
	// recorded on the job but never trusted for ranking.
	team.RecordSolve(job.Scenario, c.clock.Now())
	if err := c.store.UpsertTeam(ctx, team); err != nil {
		return err
	}
	logger.Infof("team %s solved %s", team.TeamID, job.Scenario)
	creditedSolves.Inc()

	scenario, err := c.store.GetScenario(ctx, job.Scenario)
	if err != nil {
		return err
	}
	if scenario == nil {
		return nil
	}
	scenario.Solves++
	return c.store.UpsertScenario(ctx, scenario)
}

func (c *Controller) ack(ctx context.Context, msg sqstypes.Message) error {
	if err := c.queue.DeleteMessage(ctx, msg.ReceiptHandle); err != nil {
		return err
	}
	deletedMessages.Inc()
	return nil
}
