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
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/errors"
	"github.com/mailraid/mailraid/pkg/logging"
)

func (s *Server) teamsList(w http.ResponseWriter, r *http.Request) error {
	teams, err := s.store.ListTeams(r.Context())
	if err != nil {
		return err
	}
	teams = lo.Reject(teams, func(t *apis.Team, _ int) bool { return t.Deleted })

	// Anonymous callers only see names, not rosters or solve state.
	if userFrom(r.Context()) == nil {
		return writeJSON(w, http.StatusOK, lo.Map(teams, func(t *apis.Team, _ int) apis.TeamView {
			return t.PublicView()
		}))
	}
	return writeJSON(w, http.StatusOK, lo.Map(teams, func(t *apis.Team, _ int) apis.TeamView {
		return t.View()
	}))
}

func (s *Server) teamsCreate(w http.ResponseWriter, r *http.Request) error {
	user := userFrom(r.Context())
	if user.Team != nil {
		return errors.Conflict(
			"You are already a member of a team and cannot create a new team.",
			"Please leave your current team before creating a new one.",
		)
	}

	body := struct {
		Name string `json:"name"`
	}{}
	if err := readJSON(r, &body); err != nil || body.Name == "" {
		return errors.BadRequest(
			"You did not provide a valid 'name' field in the request.",
			"Please make sure that you provide a valid team name in your request.",
		)
	}

	existing, err := s.store.GetTeamByName(r.Context(), body.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.Conflict(
			"The team name you provided has already been used by another team.",
			"Please choose a unique team name and try registering again.",
		)
	}

	team := apis.NewTeam(body.Name, user.Login)
	user.Team = lo.ToPtr(team.TeamID)
	if err := s.store.UpsertTeam(r.Context(), team); err != nil {
		return err
	}
	if err := s.store.UpsertUser(r.Context(), user); err != nil {
		return err
	}
	logging.FromContext(r.Context()).Infof("team %q created with id %s", team.Name, team.TeamID)

	w.Header().Set("Location", fmt.Sprintf("/api/teams/%s", team.TeamID))
	return writeJSON(w, http.StatusCreated, team.View())
}

func (s *Server) teamGet(w http.ResponseWriter, r *http.Request) error {
	teamID, err := s.teamID(r)
	if err != nil {
		return err
	}
	team, err := s.store.GetTeam(r.Context(), teamID)
	if err != nil {
		return err
	}
	if team == nil || team.Deleted {
		return errors.NotFound(
			"The team you attempted to retrieve information about does not exist.",
			"Please make sure that you are using the correct team ID and that you have permission to view this team's information.",
		)
	}
	return writeJSON(w, http.StatusOK, team.View())
}

func (s *Server) teamUpdate(w http.ResponseWriter, r *http.Request) error {
	teamID, err := s.teamID(r)
	if err != nil {
		return err
	}

	body := struct {
		Members []string `json:"members"`
	}{}
	if err := readJSON(r, &body); err != nil || len(body.Members) == 0 {
		return errors.BadRequest(
			"You did not provide a valid 'members' field in the request.",
			"Please make sure that you provide a valid list of team members in your request.",
		)
	}
	return s.updateTeamMembers(w, r, teamID, body.Members)
}

func (s *Server) updateTeamMembers(w http.ResponseWriter, r *http.Request, teamID string, members []string) error {
	logger := logging.FromContext(r.Context())

	team, err := s.store.GetTeam(r.Context(), teamID)
	if err != nil {
		return err
	}
	if team == nil || team.Deleted {
		return errors.NotFound(
			fmt.Sprintf("Team with ID %s not found.", teamID),
			"Please make sure that you are using the correct team ID.",
		)
	}
	if len(members) > apis.TeamSizeLimit {
		return errors.Conflict(
			fmt.Sprintf("Team with ID %s would exceed the maximum team size of %d members.", teamID, apis.TeamSizeLimit),
			"Please create a new team, or remove members who are no longer active.",
		)
	}

	newMembers, removedMembers := lo.Difference(members, team.Members)

	for _, member := range newMembers {
		logger.Infof("adding user %s to team %s", member, teamID)
		user, err := s.store.GetUser(r.Context(), strings.ToLower(member))
		if err != nil {
			return err
		}
		if user == nil {
			return errors.NotFound(
				fmt.Sprintf("We could not find a registered user with the GitHub username '%s'.", member),
				"Please make sure that the person you are trying to add has already signed up for the competition.",
			)
		}
		if user.Team != nil && *user.Team != teamID {
			return errors.Conflict(
				fmt.Sprintf("%s is already a member of another team and cannot be added to this one.", member),
				"The user will need to leave their current team before they can join this team.",
			)
		}
		user.Team = lo.ToPtr(teamID)
		if err := s.store.UpsertUser(r.Context(), user); err != nil {
			return err
		}
		team.Members = append(team.Members, strings.ToLower(member))
	}

	for _, member := range removedMembers {
		logger.Infof("removing user %s from team %s", member, teamID)
		user, err := s.store.GetUser(r.Context(), member)
		if err != nil {
			return err
		}
		if user != nil {
			user.Team = nil
			if err := s.store.UpsertUser(r.Context(), user); err != nil {
				return err
			}
		}
		team.Members = lo.Without(team.Members, member)
	}

	if err := s.store.UpsertTeam(r.Context(), team); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, team.View())
}

func (s *Server) teamDelete(w http.ResponseWriter, r *http.Request) error {
	teamID, err := s.teamID(r)
	if err != nil {
		return err
	}
	team, err := s.store.GetTeam(r.Context(), teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return errors.NotFound(
			fmt.Sprintf("Team with ID %s not found.", teamID),
			"Please make sure that you are using the correct team ID.",
		)
	}
	if len(team.Members) > 1 {
		return errors.Conflict(
			"You cannot delete a team if there are other team members in it.",
			"Make sure that you are the last member of the team before deleting it.",
		)
	}

	for _, member := range team.Members {
		user, err := s.store.GetUser(r.Context(), member)
		if err != nil {
			return err
		}
		if user != nil {
			user.Team = nil
			if err := s.store.UpsertUser(r.Context(), user); err != nil {
				return err
			}
		}
	}

	// Tombstone, not a hard delete: the team's solve history keeps feeding
	// the scoring model.
	team.Deleted = true
	team.IsEnabled = false
	team.Members = []string{}
	if err := s.store.UpsertTeam(r.Context(), team); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) teamEnable(w http.ResponseWriter, r *http.Request) error {
	return s.setTeamEnabled(w, r, true)
}

func (s *Server) teamDisable(w http.ResponseWriter, r *http.Request) error {
	return s.setTeamEnabled(w, r, false)
}

func (s *Server) setTeamEnabled(w http.ResponseWriter, r *http.Request, enabled bool) error {
	teamID := chi.URLParam(r, "team_id")
	var team *apis.Team
	if teamID != "" {
		var err error
		if team, err = s.store.GetTeam(r.Context(), teamID); err != nil {
			return err
		}
	}
	if team == nil {
		return errors.NotFound(
			fmt.Sprintf("Team with ID %s not found.", teamID),
			"Please make sure that you are using the correct team ID.",
		)
	}
	if enabled {
		team.Enable()
	} else {
		team.Disable()
	}
	if err := s.store.UpsertTeam(r.Context(), team); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, team.View())
}
