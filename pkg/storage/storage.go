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

// Package storage defines the durable port for the control plane's entities.
// Every write is an unconditional last-writer-wins upsert; "not found" is
// reported as a nil entity, never as an error, so callers branch cleanly.
package storage

import (
	"context"

	"github.com/mailraid/mailraid/pkg/apis"
)

// Store is the durable CRUD port backing teams, users, scenarios, jobs and
// leaderboards. Implementations must tolerate concurrent writers on the same
// entity; the control plane accepts last-writer-wins races by design.
type Store interface {
	// Setup creates the backing tables when they do not exist. Idempotent.
	Setup(ctx context.Context) error

	UpsertTeam(ctx context.Context, team *apis.Team) error
	GetTeam(ctx context.Context, teamID string) (*apis.Team, error)
	// GetTeamByName scans for a non-deleted team with the given name. The
	// name filter is a structured query, never string concatenation.
	GetTeamByName(ctx context.Context, name string) (*apis.Team, error)
	ListTeams(ctx context.Context) ([]*apis.Team, error)

	UpsertUser(ctx context.Context, user *apis.User) error
	GetUser(ctx context.Context, login string) (*apis.User, error)
	ListUsers(ctx context.Context) ([]*apis.User, error)
	DeleteUser(ctx context.Context, user *apis.User) error

	UpsertScenario(ctx context.Context, scenario *apis.Scenario) error
	GetScenario(ctx context.Context, scenarioID string) (*apis.Scenario, error)
	// ListScenarios returns the scenarios of the given phase only; the rest
	// of the catalog is dormant.
	ListScenarios(ctx context.Context, phase int) ([]*apis.Scenario, error)

	UpsertJob(ctx context.Context, job *apis.JobRecord) error
	GetJob(ctx context.Context, teamID, jobID string) (*apis.JobRecord, error)
	ListJobs(ctx context.Context, teamID string) ([]*apis.JobRecord, error)

	UpsertLeaderboard(ctx context.Context, leaderboard *apis.Leaderboard) error
	GetLeaderboard(ctx context.Context, phase int) (*apis.Leaderboard, error)
}
