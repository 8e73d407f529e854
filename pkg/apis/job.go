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

package apis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// JobRecord is the durable record of a submission, partitioned by team.
//
// CompletedTime is set at most once: the results and deadletter consumers
// both check it before mutating, which makes reconciliation idempotent under
// any delivery order or redelivery.
type JobRecord struct {
	TeamID   string `json:"team_id"`
	JobID    string `json:"job_id"`
	Scenario string `json:"scenario"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`

	ScheduledTime string  `json:"scheduled_time"`
	StartedTime   *string `json:"started_time,omitempty"`
	CompletedTime *string `json:"completed_time,omitempty"`
	Output        *string `json:"output,omitempty"`

	// Objectives holds the worker's verdict per objective name. Keys are a
	// subset of the owning scenario's objectives list.
	Objectives map[string]bool `json:"objectives"`
}

// NewJobRecord mints a job scheduled now.
func NewJobRecord(teamID, scenario, subject, body string, now time.Time) *JobRecord {
	return &JobRecord{
		TeamID:        teamID,
		JobID:         uuid.NewString(),
		Scenario:      scenario,
		Subject:       subject,
		Body:          body,
		ScheduledTime: Timestamp(now),
		Objectives:    map[string]bool{},
	}
}

func (j *JobRecord) PartitionKey() string { return j.TeamID }
func (j *JobRecord) RowKey() string       { return j.JobID }

func (j *JobRecord) String() string {
	return fmt.Sprintf("%s (team:%s, job:%s)", j.Scenario, j.TeamID, j.JobID)
}

// Completed reports whether the job has reached a terminal state.
func (j *JobRecord) Completed() bool {
	return j.CompletedTime != nil
}

// Solved reports whether this job solved its scenario: a non-empty objectives
// map with every objective true.
func (j *JobRecord) Solved() bool {
	if len(j.Objectives) == 0 {
		return false
	}
	for _, ok := range j.Objectives {
		if !ok {
			return false
		}
	}
	return true
}

// BuildMessage snapshots the job into a queue envelope carrying the current
// trace context. Workers operate on the snapshot and never re-read storage.
func (j *JobRecord) BuildMessage(ctx context.Context) *JobMessage {
	return &JobMessage{
		TeamID:       j.TeamID,
		JobID:        j.JobID,
		Scenario:     j.Scenario,
		Subject:      j.Subject,
		Body:         j.Body,
		TraceContext: buildTraceContext(ctx),
	}
}

// JobView is the API projection of a job record.
type JobView struct {
	TeamID        string          `json:"team_id"`
	JobID         string          `json:"job_id"`
	Scenario      string          `json:"scenario"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	ScheduledTime string          `json:"scheduled_time"`
	StartedTime   *string         `json:"started_time,omitempty"`
	CompletedTime *string         `json:"completed_time,omitempty"`
	Output        *string         `json:"output,omitempty"`
	Objectives    map[string]bool `json:"objectives,omitempty"`
}

func (j *JobRecord) View() JobView {
	return JobView{
		TeamID:        j.TeamID,
		JobID:         j.JobID,
		Scenario:      j.Scenario,
		Subject:       j.Subject,
		Body:          j.Body,
		ScheduledTime: j.ScheduledTime,
		StartedTime:   j.StartedTime,
		CompletedTime: j.CompletedTime,
		Output:        j.Output,
		Objectives:    j.Objectives,
	}
}

// JobMessage is the envelope sent through the dispatch queues.
type JobMessage struct {
	TeamID       string            `json:"team_id"`
	JobID        string            `json:"job_id"`
	Scenario     string            `json:"scenario"`
	Subject      string            `json:"subject"`
	Body         string            `json:"body"`
	TraceContext map[string]string `json:"trace_context,omitempty"`
}

func (m *JobMessage) String() string {
	return fmt.Sprintf("%s (team:%s, job:%s)", m.Scenario, m.TeamID, m.JobID)
}

// ExtractTraceContext resumes the trace that produced this message.
func (m *JobMessage) ExtractTraceContext(ctx context.Context) context.Context {
	return extractTraceContext(ctx, m.TraceContext)
}

// JobResult is the envelope workers send back on the results queue.
type JobResult struct {
	TeamID        string            `json:"team_id"`
	JobID         string            `json:"job_id"`
	StartedTime   string            `json:"started_time"`
	CompletedTime string            `json:"completed_time"`
	Output        string            `json:"output"`
	Objectives    map[string]bool   `json:"objectives,omitempty"`
	TraceContext  map[string]string `json:"trace_context,omitempty"`
}

func (r *JobResult) String() string { return r.JobID }

// ExtractTraceContext resumes the trace that produced this result.
func (r *JobResult) ExtractTraceContext(ctx context.Context) context.Context {
	return extractTraceContext(ctx, r.TraceContext)
}

func buildTraceContext(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}

func extractTraceContext(ctx context.Context, traceContext map[string]string) context.Context {
	if traceContext == nil {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(traceContext))
}
