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
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// TeamSizeLimit is the maximum number of members a team may carry.
const TeamSizeLimit = 5

// Team is the unit of competition. Rate limits, solves and the leaderboard all
// hang off the team, never off individual users.
type Team struct {
	TeamID  string   `json:"team_id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`

	// SolvedScenarios is the set of scenario ids this team has solved at
	// least once. SolutionDetails records the first-solve timestamp per
	// scenario and is what the scoring model consumes.
	SolvedScenarios []string          `json:"solved_scenarios"`
	SolutionDetails map[string]string `json:"solution_details"`

	// Rate limit overrides; nil means the configured defaults apply.
	RateLimitSustained *float64 `json:"rate_limit_sustained,omitempty"`
	RateLimitBurst     *int     `json:"rate_limit_burst,omitempty"`
	RateLimitTotal     *int     `json:"rate_limit_total,omitempty"`

	// RateLimitWatermark is the token bucket's virtual time in Unix seconds.
	// RateLimitCounter counts every admitted submission and is never reset.
	RateLimitWatermark *float64 `json:"rate_limit_watermark,omitempty"`
	RateLimitCounter   int      `json:"rate_limit_counter"`

	IsEnabled bool `json:"is_enabled"`
	// Deleted is a tombstone. Deleted teams stay in storage so historical
	// solves keep feeding the scoring model, but they are filtered from
	// listings and from the leaderboard.
	Deleted bool `json:"deleted"`
}

// NewTeam mints a team with a fresh id, its creator as the only member and
// submissions enabled.
func NewTeam(name string, members ...string) *Team {
	return &Team{
		TeamID:          uuid.NewString(),
		Name:            name,
		Members:         members,
		SolvedScenarios: []string{},
		SolutionDetails: map[string]string{},
		IsEnabled:       true,
	}
}

func (t *Team) PartitionKey() string { return t.TeamID }
func (t *Team) RowKey() string       { return t.TeamID }

// HasSolved reports whether the scenario is already credited to this team.
func (t *Team) HasSolved(scenarioID string) bool {
	return lo.Contains(t.SolvedScenarios, scenarioID)
}

// RecordSolve credits scenarioID to the team at the given time. Calling it for
// an already-solved scenario is a no-op so duplicate result deliveries cannot
// double-credit.
func (t *Team) RecordSolve(scenarioID string, at time.Time) {
	if t.HasSolved(scenarioID) {
		return
	}
	t.SolvedScenarios = append(t.SolvedScenarios, scenarioID)
	if t.SolutionDetails == nil {
		t.SolutionDetails = map[string]string{}
	}
	t.SolutionDetails[scenarioID] = Timestamp(at)
}

// SetWatermark persists a new token bucket watermark on the team.
func (t *Team) SetWatermark(at time.Time) {
	t.RateLimitWatermark = lo.ToPtr(float64(at.UnixNano()) / float64(time.Second))
}

func (t *Team) Enable()  { t.IsEnabled = true }
func (t *Team) Disable() { t.IsEnabled = false }

// TeamView is the API projection of a team. Internal rate limit bookkeeping
// and solve timestamps never leave the process.
type TeamView struct {
	TeamID          string   `json:"team_id"`
	Name            string   `json:"name"`
	Members         []string `json:"members,omitempty"`
	SolvedScenarios []string `json:"solved_scenarios,omitempty"`
	IsEnabled       *bool    `json:"is_enabled,omitempty"`
}

// View returns the full authenticated projection of the team.
func (t *Team) View() TeamView {
	return TeamView{
		TeamID:          t.TeamID,
		Name:            t.Name,
		Members:         t.Members,
		SolvedScenarios: t.SolvedScenarios,
		IsEnabled:       lo.ToPtr(t.IsEnabled),
	}
}

// PublicView limits the projection to the fields anonymous callers may see.
func (t *Team) PublicView() TeamView {
	return TeamView{TeamID: t.TeamID, Name: t.Name}
}
