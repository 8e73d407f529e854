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

// Package scoring orders teams by their solve history. The model is a pure
// function of (solve details, active catalog, parameters): no wall clock, no
// storage reads, so any two replicas building a leaderboard from the same
// snapshot produce the same order.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/apis"
)

// Model scores teams on three factors: the order in which each team solved a
// scenario, the difficulty of the scenario measured by how many teams solved
// it, and the average point in time of the team's solves for tie breaking.
type Model struct {
	// BaseScore is awarded for a scenario solved first and alone.
	BaseScore float64
	// MinDecayedScore floors the order decay. The floor applies after the
	// order decay and before the difficulty decay.
	MinDecayedScore float64
	// DifficultyMultiplier decays every solver's score once per additional
	// team that solved the scenario. Range (0..1); higher penalizes less.
	DifficultyMultiplier float64
	// OrderMultiplier decays a team's score once per earlier solver of the
	// same scenario. Range (0..1); higher penalizes less.
	OrderMultiplier float64
}

// DefaultModel returns the competition's production parameters.
func DefaultModel() Model {
	return Model{
		BaseScore:            40000,
		MinDecayedScore:      30000,
		DifficultyMultiplier: 0.85,
		OrderMultiplier:      0.95,
	}
}

// Order returns the teams ordered best-first. Only solves of scenarios in the
// active catalog count. Ties on total score fall back to the average solve
// timestamp (earlier wins, rewarding consistent solvers over lucky ones) and
// finally to the lexicographic team id, so the order is always total.
func (m Model) Order(teams []*apis.Team, catalog []string) []*apis.Team {
	teamScore, avgSolveTime := m.evaluate(teams, catalog)

	ordered := make([]*apis.Team, len(teams))
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if teamScore[a.TeamID] != teamScore[b.TeamID] {
			return teamScore[a.TeamID] > teamScore[b.TeamID]
		}
		if avgSolveTime[a.TeamID] != avgSolveTime[b.TeamID] {
			return avgSolveTime[a.TeamID] < avgSolveTime[b.TeamID]
		}
		return a.TeamID < b.TeamID
	})
	return ordered
}

// Scores returns each team's total score under the model. Teams without
// counted solves score zero.
func (m Model) Scores(teams []*apis.Team, catalog []string) map[string]float64 {
	scores, _ := m.evaluate(teams, catalog)
	return scores
}

func (m Model) evaluate(teams []*apis.Team, catalog []string) (map[string]float64, map[string]float64) {
	active := lo.SliceToMap(catalog, func(id string) (string, struct{}) { return id, struct{}{} })

	type solve struct {
		scenario string
		at       time.Time
	}

	levelSolves := map[string]int{}
	levelTimes := map[string][]time.Time{}
	teamSolves := map[string][]solve{}
	avgSolveTime := map[string]float64{}

	for _, team := range teams {
		var solves []solve
		solveTimeSum := 0.0
		for scenario, timestamp := range team.SolutionDetails {
			if _, ok := active[scenario]; !ok {
				continue
			}
			at, err := apis.ParseTimestamp(timestamp)
			if err != nil {
				continue
			}
			solves = append(solves, solve{scenario: scenario, at: at})
			levelSolves[scenario]++
			levelTimes[scenario] = append(levelTimes[scenario], at)
			solveTimeSum += float64(at.UnixNano()) / float64(time.Second)
		}
		if len(solves) > 0 {
			avgSolveTime[team.TeamID] = solveTimeSum / float64(len(solves))
		}
		teamSolves[team.TeamID] = solves
	}

	for scenario := range levelTimes {
		times := levelTimes[scenario]
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	}

	teamScore := map[string]float64{}
	for _, team := range teams {
		for _, s := range teamSolves[team.TeamID] {
			score := m.BaseScore
			score *= math.Pow(m.OrderMultiplier, float64(solveRank(levelTimes[s.scenario], s.at)))
			score = math.Max(m.MinDecayedScore, score)
			score *= math.Pow(m.DifficultyMultiplier, float64(levelSolves[s.scenario]-1))
			teamScore[team.TeamID] += score
		}
	}

	return teamScore, avgSolveTime
}

// solveRank is the zero-based position of the solve among all solvers of the
// scenario. Identical timestamps share the first matching rank, and the
// team id tiebreaker in Order keeps the final order total regardless.
func solveRank(sorted []time.Time, at time.Time) int {
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Before(at) })
	return i
}
