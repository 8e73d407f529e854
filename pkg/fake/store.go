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

package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/storage"
)

// Store is an in-memory storage.Store. Entities are deep-copied on the way in
// and out so tests cannot alias the stored state through returned pointers.
// NextError, when set, fails the next call the way a storage outage would.
type Store struct {
	NextError AtomicError

	mu           sync.Mutex
	teams        map[string]*apis.Team
	users        map[string]*apis.User
	scenarios    map[string]*apis.Scenario
	jobs         map[string]*apis.JobRecord
	leaderboards map[int]*apis.Leaderboard
}

func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (s *Store) Reset() {
	s.NextError.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = map[string]*apis.Team{}
	s.users = map[string]*apis.User{}
	s.scenarios = map[string]*apis.Scenario{}
	s.jobs = map[string]*apis.JobRecord{}
	s.leaderboards = map[int]*apis.Leaderboard{}
}

func (s *Store) Setup(_ context.Context) error {
	return s.NextError.Get()
}

func (s *Store) UpsertTeam(_ context.Context, team *apis.Team) error {
	if err := s.NextError.Get(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[team.TeamID] = cloneOrNil(team)
	return nil
}

func (s *Store) GetTeam(_ context.Context, teamID string) (*apis.Team, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.teams[teamID]), nil
}

func (s *Store) GetTeamByName(_ context.Context, name string) (*apis.Team, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, team := range s.teams {
		if team.Name == name && !team.Deleted {
			return cloneOrNil(team), nil
		}
	}
	return nil, nil
}

func (s *Store) ListTeams(_ context.Context) ([]*apis.Team, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	teams := lo.Map(lo.Values(s.teams), func(t *apis.Team, _ int) *apis.Team { return cloneOrNil(t) })
	sort.Slice(teams, func(i, j int) bool { return teams[i].TeamID < teams[j].TeamID })
	return teams, nil
}

func (s *Store) UpsertUser(_ context.Context, user *apis.User) error {
	if err := s.NextError.Get(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Login] = cloneOrNil(user)
	return nil
}

func (s *Store) GetUser(_ context.Context, login string) (*apis.User, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.users[login]), nil
}

func (s *Store) ListUsers(_ context.Context) ([]*apis.User, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := lo.Map(lo.Values(s.users), func(u *apis.User, _ int) *apis.User { return cloneOrNil(u) })
	sort.Slice(users, func(i, j int) bool { return users[i].Login < users[j].Login })
	return users, nil
}

func (s *Store) DeleteUser(_ context.Context, user *apis.User) error {
	if err := s.NextError.Get(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, user.Login)
	return nil
}

func (s *Store) UpsertScenario(_ context.Context, scenario *apis.Scenario) error {
	if err := s.NextError.Get(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[scenario.ScenarioID] = cloneOrNil(scenario)
	return nil
}

func (s *Store) GetScenario(_ context.Context, scenarioID string) (*apis.Scenario, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.scenarios[scenarioID]), nil
}

func (s *Store) ListScenarios(_ context.Context, phase int) ([]*apis.Scenario, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	scenarios := lo.FilterMap(lo.Values(s.scenarios), func(sc *apis.Scenario, _ int) (*apis.Scenario, bool) {
		return cloneOrNil(sc), sc.Phase == phase
	})
	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].ScenarioID < scenarios[j].ScenarioID })
	return scenarios, nil
}

func (s *Store) UpsertJob(_ context.Context, job *apis.JobRecord) error {
	if err := s.NextError.Get(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobKey(job.TeamID, job.JobID)] = cloneOrNil(job)
	return nil
}

func (s *Store) GetJob(_ context.Context, teamID, jobID string) (*apis.JobRecord, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.jobs[jobKey(teamID, jobID)]), nil
}

func (s *Store) ListJobs(_ context.Context, teamID string) ([]*apis.JobRecord, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := lo.FilterMap(lo.Values(s.jobs), func(j *apis.JobRecord, _ int) (*apis.JobRecord, bool) {
		return cloneOrNil(j), j.TeamID == teamID
	})
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].JobID < jobs[j].JobID })
	return jobs, nil
}

func (s *Store) UpsertLeaderboard(_ context.Context, leaderboard *apis.Leaderboard) error {
	if err := s.NextError.Get(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboards[leaderboard.Phase] = cloneOrNil(leaderboard)
	return nil
}

func (s *Store) GetLeaderboard(_ context.Context, phase int) (*apis.Leaderboard, error) {
	if err := s.NextError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrNil(s.leaderboards[phase]), nil
}

func jobKey(teamID, jobID string) string {
	return fmt.Sprintf("%s/%s", teamID, jobID)
}

// cloneOrNil deep-copies an entity, preserving nil for "not found".
func cloneOrNil[T any](v *T) *T {
	if v == nil {
		return nil
	}
	return clone(v)
}

var _ storage.Store = (*Store)(nil)
