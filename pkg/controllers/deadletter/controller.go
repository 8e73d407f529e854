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

// Package deadletter closes out jobs whose dispatch messages exhausted their
// delivery attempts, so competitors see a terminal failure instead of a job
// stuck pending forever.
package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"k8s.io/utils/clock"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/logging"
	"github.com/mailraid/mailraid/pkg/queues"
	"github.com/mailraid/mailraid/pkg/storage"
)

const pollingPeriod = 2 * time.Second

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
	logger := logging.FromContext(ctx).Named("deadletter")
	ctx = logging.WithLogger(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("Shutting down")
			return ctx.Err()
		case <-time.After(pollingPeriod):
			if err := c.Poll(ctx); err != nil {
				logger.Errorf("polling dead-letter queue, %s", err)
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
	deadLetteredMessages.Inc()
	if msg.Body == nil {
		return c.ack(ctx, msg)
	}
	message := &apis.JobMessage{}
	if err := json.Unmarshal([]byte(*msg.Body), message); err != nil {
		logging.FromContext(ctx).Errorf("discarding unparseable dead-letter message, %s", err)
		return c.ack(ctx, msg)
	}
	ctx = message.ExtractTraceContext(ctx)
	if err := c.reconcile(ctx, message); err != nil {
		return err
	}
	return c.ack(ctx, msg)
}

func (c *Controller) reconcile(ctx context.Context, message *apis.JobMessage) error {
	logger := logging.FromContext(ctx)

	job, err := c.store.GetJob(ctx, message.TeamID, message.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.Warnf("dead-letter message references unknown job %s, dropping it", message.JobID)
		return nil
	}
	if job.Completed() {
		// A worker got to it after all. The result wins.
		return nil
	}

	now := apis.Timestamp(c.clock.Now())
	job.StartedTime = lo.ToPtr(now)
	job.CompletedTime = lo.ToPtr(now)
	job.Objectives = map[string]bool{}
	job.Output = lo.ToPtr(fmt.Sprintf(
		"Job failed to process after multiple attempts. Please report this issue to the competition organizers with the trace ID %s.",
		c.traceID(ctx, job),
	))
	if err := c.store.UpsertJob(ctx, job); err != nil {
		return err
	}
	logger.Warnf("job %s failed permanently", job.JobID)
	failedJobs.Inc()
	return nil
}

// traceID identifies the failed run for support requests. Falls back to the
// job id when the message carried no usable trace context.
func (c *Controller) traceID(ctx context.Context, job *apis.JobRecord) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return job.JobID
}

func (c *Controller) ack(ctx context.Context, msg sqstypes.Message) error {
	return c.queue.DeleteMessage(ctx, msg.ReceiptHandle)
}
