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

package webapi

import (
	"net/http"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/apis"
)

const scenarioListCacheKey = "scenarios/list"

func (s *Server) scenariosList(w http.ResponseWriter, r *http.Request) error {
	if cached, ok := s.scenarios.Get(scenarioListCacheKey); ok {
		return writeJSON(w, http.StatusOK, cached)
	}
	scenarios, err := s.store.ListScenarios(r.Context(), s.opts.Phase)
	if err != nil {
		return err
	}
	views := lo.Map(scenarios, func(sc *apis.Scenario, _ int) apis.ScenarioView { return sc.View() })
	s.scenarios.Set(scenarioListCacheKey, views, gocache.DefaultExpiration)
	return writeJSON(w, http.StatusOK, views)
}

func (s *Server) leaderboardGet(w http.ResponseWriter, r *http.Request) error {
	leaderboard, err := s.store.GetLeaderboard(r.Context(), s.opts.Phase)
	if err != nil {
		return err
	}
	if leaderboard == nil {
		// The builder has not run yet. An empty board is not an error.
		return writeJSON(w, http.StatusOK, apis.LeaderboardView{Teams: []string{}})
	}
	return writeJSON(w, http.StatusOK, leaderboard.View())
}
