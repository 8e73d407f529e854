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

	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/catalog"
	"github.com/mailraid/mailraid/pkg/logging"
)

func (s *Server) internalHealthcheck(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("OK"))
	return err
}

// internalSetup provisions tables and queues and reconciles the scenario
// catalog. Idempotent; run it on every deploy.
func (s *Server) internalSetup(w http.ResponseWriter, r *http.Request) error {
	if err := s.store.Setup(r.Context()); err != nil {
		return err
	}
	if err := s.queues.Setup(r.Context(), catalog.Workqueues()...); err != nil {
		return err
	}
	if err := catalog.Setup(r.Context(), s.store); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"message": "Internal setup completed successfully."})
}

// internalRepairTeamMembership fixes drift between user.Team and team rosters.
// The roster is authoritative: users pointing at a missing team or absent from
// their team's member list get their membership cleared.
func (s *Server) internalRepairTeamMembership(w http.ResponseWriter, r *http.Request) error {
	logger := logging.FromContext(r.Context())

	teams, err := s.store.ListTeams(r.Context())
	if err != nil {
		return err
	}
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		return err
	}

	teamByID := lo.KeyBy(teams, func(t *apis.Team) string { return t.TeamID })

	repaired := 0
	for _, user := range users {
		if user.Team == nil {
			continue
		}
		team, ok := teamByID[*user.Team]
		if !ok {
			logger.Warnf("user %s was on a team that no longer exists, removing from team", user.Login)
			user.Team = nil
			repaired++
			if err := s.store.UpsertUser(r.Context(), user); err != nil {
				return err
			}
			continue
		}
		if !lo.Contains(team.Members, user.Login) {
			logger.Warnf("user %s was not in the team member list, removing team membership information from their account", user.Login)
			user.Team = nil
			repaired++
			if err := s.store.UpsertUser(r.Context(), user); err != nil {
				return err
			}
		}
	}

	return writeJSON(w, http.StatusOK, map[string]int{
		"total_teams":    len(teams),
		"total_users":    len(users),
		"repaired_users": repaired,
	})
}
