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

package dynamo

import (
	"encoding/json"
	"fmt"

	"github.com/mailraid/mailraid/pkg/apis"
)

// Nested collections are JSON-encoded strings at rest rather than native
// document attributes: rows stay scannable as flat key-value pairs and the
// encoding survives round trips through other tooling unchanged.

func jsonField(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding json field, %w", err)
	}
	return string(raw), nil
}

func parseJSONField[T any](raw string, out *T) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decoding json field, %w", err)
	}
	return nil
}

type teamRecord struct {
	PartitionKey string `dynamodbav:"PartitionKey"`
	RowKey       string `dynamodbav:"RowKey"`

	TeamID          string `dynamodbav:"TeamID"`
	Name            string `dynamodbav:"Name"`
	Members         string `dynamodbav:"Members"`
	SolvedScenarios string `dynamodbav:"SolvedScenarios"`
	SolutionDetails string `dynamodbav:"SolutionDetails"`

	RateLimitSustained *float64 `dynamodbav:"RateLimitSustained,omitempty"`
	RateLimitBurst     *int     `dynamodbav:"RateLimitBurst,omitempty"`
	RateLimitTotal     *int     `dynamodbav:"RateLimitTotal,omitempty"`
	RateLimitWatermark *float64 `dynamodbav:"RateLimitWatermark,omitempty"`
	RateLimitCounter   int      `dynamodbav:"RateLimitCounter"`

	IsEnabled bool `dynamodbav:"IsEnabled"`
	Deleted   bool `dynamodbav:"Deleted"`
}

func newTeamRecord(team *apis.Team) (*teamRecord, error) {
	members, err := jsonField(team.Members)
	if err != nil {
		return nil, err
	}
	solved, err := jsonField(team.SolvedScenarios)
	if err != nil {
		return nil, err
	}
	details, err := jsonField(team.SolutionDetails)
	if err != nil {
		return nil, err
	}
	return &teamRecord{
		PartitionKey:       team.PartitionKey(),
		RowKey:             team.RowKey(),
		TeamID:             team.TeamID,
		Name:               team.Name,
		Members:            members,
		SolvedScenarios:    solved,
		SolutionDetails:    details,
		RateLimitSustained: team.RateLimitSustained,
		RateLimitBurst:     team.RateLimitBurst,
		RateLimitTotal:     team.RateLimitTotal,
		RateLimitWatermark: team.RateLimitWatermark,
		RateLimitCounter:   team.RateLimitCounter,
		IsEnabled:          team.IsEnabled,
		Deleted:            team.Deleted,
	}, nil
}

func (r *teamRecord) toTeam() (*apis.Team, error) {
	team := &apis.Team{
		TeamID:             r.TeamID,
		Name:               r.Name,
		Members:            []string{},
		SolvedScenarios:    []string{},
		SolutionDetails:    map[string]string{},
		RateLimitSustained: r.RateLimitSustained,
		RateLimitBurst:     r.RateLimitBurst,
		RateLimitTotal:     r.RateLimitTotal,
		RateLimitWatermark: r.RateLimitWatermark,
		RateLimitCounter:   r.RateLimitCounter,
		IsEnabled:          r.IsEnabled,
		Deleted:            r.Deleted,
	}
	if err := parseJSONField(r.Members, &team.Members); err != nil {
		return nil, fmt.Errorf("team %s members, %w", r.TeamID, err)
	}
	if err := parseJSONField(r.SolvedScenarios, &team.SolvedScenarios); err != nil {
		return nil, fmt.Errorf("team %s solved scenarios, %w", r.TeamID, err)
	}
	if err := parseJSONField(r.SolutionDetails, &team.SolutionDetails); err != nil {
		return nil, fmt.Errorf("team %s solution details, %w", r.TeamID, err)
	}
	return team, nil
}

type userRecord struct {
	PartitionKey string `dynamodbav:"PartitionKey"`
	RowKey       string `dynamodbav:"RowKey"`

	Login   string  `dynamodbav:"Login"`
	APIKey  string  `dynamodbav:"APIKey"`
	Team    *string `dynamodbav:"Team,omitempty"`
	Role    string  `dynamodbav:"Role"`
	Blocked bool    `dynamodbav:"Blocked"`
}

func newUserRecord(user *apis.User) *userRecord {
	return &userRecord{
		PartitionKey: user.PartitionKey(),
		RowKey:       user.RowKey(),
		Login:        user.Login,
		APIKey:       user.APIKey,
		Team:         user.Team,
		Role:         user.Role,
		Blocked:      user.Blocked,
	}
}

func (r *userRecord) toUser() *apis.User {
	return &apis.User{
		Login:   r.Login,
		APIKey:  r.APIKey,
		Team:    r.Team,
		Role:    r.Role,
		Blocked: r.Blocked,
	}
}

type scenarioRecord struct {
	PartitionKey string `dynamodbav:"PartitionKey"`
	RowKey       string `dynamodbav:"RowKey"`

	ScenarioID  string `dynamodbav:"ScenarioID"`
	Name        string `dynamodbav:"Name"`
	Description string `dynamodbav:"Description"`
	Objectives  string `dynamodbav:"Objectives"`
	Metadata    string `dynamodbav:"Metadata"`
	Workqueue   string `dynamodbav:"Workqueue"`
	Phase       int    `dynamodbav:"Phase"`
	Solves      int    `dynamodbav:"Solves"`
}

func newScenarioRecord(scenario *apis.Scenario) (*scenarioRecord, error) {
	objectives, err := jsonField(scenario.Objectives)
	if err != nil {
		return nil, err
	}
	metadata, err := jsonField(scenario.Metadata)
	if err != nil {
		return nil, err
	}
	return &scenarioRecord{
		PartitionKey: scenario.PartitionKey(),
		RowKey:       scenario.RowKey(),
		ScenarioID:   scenario.ScenarioID,
		Name:         scenario.Name,
		Description:  scenario.Description,
		Objectives:   objectives,
		Metadata:     metadata,
		Workqueue:    scenario.Workqueue,
		Phase:        scenario.Phase,
		Solves:       scenario.Solves,
	}, nil
}

func (r *scenarioRecord) toScenario() (*apis.Scenario, error) {
	scenario := &apis.Scenario{
		ScenarioID:  r.ScenarioID,
		Name:        r.Name,
		Description: r.Description,
		Objectives:  []string{},
		Metadata:    map[string]string{},
		Workqueue:   r.Workqueue,
		Phase:       r.Phase,
		Solves:      r.Solves,
	}
	if err := parseJSONField(r.Objectives, &scenario.Objectives); err != nil {
		return nil, fmt.Errorf("scenario %s objectives, %w", r.ScenarioID, err)
	}
	if err := parseJSONField(r.Metadata, &scenario.Metadata); err != nil {
		return nil, fmt.Errorf("scenario %s metadata, %w", r.ScenarioID, err)
	}
	return scenario, nil
}

type jobRecord struct {
	PartitionKey string `dynamodbav:"PartitionKey"`
	RowKey       string `dynamodbav:"RowKey"`

	TeamID   string `dynamodbav:"TeamID"`
	JobID    string `dynamodbav:"JobID"`
	Scenario string `dynamodbav:"Scenario"`
	Subject  string `dynamodbav:"Subject"`
	Body     string `dynamodbav:"Body"`

	ScheduledTime string  `dynamodbav:"ScheduledTime"`
	StartedTime   *string `dynamodbav:"StartedTime,omitempty"`
	CompletedTime *string `dynamodbav:"CompletedTime,omitempty"`
	Output        *string `dynamodbav:"Output,omitempty"`
	Objectives    string  `dynamodbav:"Objectives"`
}

func newJobRecord(job *apis.JobRecord) (*jobRecord, error) {
	objectives, err := jsonField(job.Objectives)
	if err != nil {
		return nil, err
	}
	return &jobRecord{
		PartitionKey:  job.PartitionKey(),
		RowKey:        job.RowKey(),
		TeamID:        job.TeamID,
		JobID:         job.JobID,
		Scenario:      job.Scenario,
		Subject:       job.Subject,
		Body:          job.Body,
		ScheduledTime: job.ScheduledTime,
		StartedTime:   job.StartedTime,
		CompletedTime: job.CompletedTime,
		Output:        job.Output,
		Objectives:    objectives,
	}, nil
}

func (r *jobRecord) toJob() (*apis.JobRecord, error) {
	job := &apis.JobRecord{
		TeamID:        r.TeamID,
		JobID:         r.JobID,
		Scenario:      r.Scenario,
		Subject:       r.Subject,
		Body:          r.Body,
		ScheduledTime: r.ScheduledTime,
		StartedTime:   r.StartedTime,
		CompletedTime: r.CompletedTime,
		Output:        r.Output,
		Objectives:    map[string]bool{},
	}
	if err := parseJSONField(r.Objectives, &job.Objectives); err != nil {
		return nil, fmt.Errorf("job %s objectives, %w", r.JobID, err)
	}
	return job, nil
}

type leaderboardRecord struct {
	PartitionKey string `dynamodbav:"PartitionKey"`
	RowKey       string `dynamodbav:"RowKey"`

	Teams       string `dynamodbav:"Teams"`
	LastUpdated string `dynamodbav:"LastUpdated"`
}

func newLeaderboardRecord(leaderboard *apis.Leaderboard) (*leaderboardRecord, error) {
	teams, err := jsonField(leaderboard.Teams)
	if err != nil {
		return nil, err
	}
	return &leaderboardRecord{
		PartitionKey: leaderboard.PartitionKey(),
		RowKey:       leaderboard.RowKey(),
		Teams:        teams,
		LastUpdated:  leaderboard.LastUpdated,
	}, nil
}

func (r *leaderboardRecord) toLeaderboard(phase int) (*apis.Leaderboard, error) {
	leaderboard := &apis.Leaderboard{
		Phase:       phase,
		Teams:       []string{},
		LastUpdated: r.LastUpdated,
	}
	if err := parseJSONField(r.Teams, &leaderboard.Teams); err != nil {
		return nil, fmt.Errorf("leaderboard teams, %w", err)
	}
	return leaderboard, nil
}
