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

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/errors"
)

// User administration. Admin-only; the role gate lives in the router.

func (s *Server) usersList(w http.ResponseWriter, r *http.Request) error {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, lo.Map(users, func(u *apis.User, _ int) apis.UserView {
		return u.View()
	}))
}

func (s *Server) userGet(w http.ResponseWriter, r *http.Request) error {
	login := chi.URLParam(r, "login")
	user, err := s.store.GetUser(r.Context(), login)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NotFound(
			fmt.Sprintf("User with login '%s' not found.", login),
			"Make sure that the user has been registered before attempting to retrieve their account information.",
		)
	}
	return writeJSON(w, http.StatusOK, user.View())
}

func (s *Server) userUpdate(w http.ResponseWriter, r *http.Request) error {
	login := chi.URLParam(r, "login")
	user, err := s.store.GetUser(r.Context(), login)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NotFound(
			fmt.Sprintf("User with login '%s' not found.", login),
			"Make sure that the user has been registered before attempting to update their account information.",
		)
	}

	body := struct {
		Role    *string `json:"role"`
		Blocked *bool   `json:"blocked"`
	}{}
	if err := readJSON(r, &body); err != nil {
		return errors.BadRequest(
			"The request body could not be parsed.",
			"Please make sure that your request contains valid JSON and try again.",
		)
	}
	if body.Role != nil {
		if *body.Role != apis.RoleAdmin && *body.Role != apis.RoleCompetitor {
			return errors.BadRequest(
				"You did not provide a valid 'role' field in the request.",
				"Please make sure that you provide a valid role in your request (either 'admin' or 'competitor').",
			)
		}
		user.Role = *body.Role
	}
	if body.Blocked != nil {
		user.Blocked = *body.Blocked
	}

	if err := s.store.UpsertUser(r.Context(), user); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, user.View())
}

func (s *Server) userDelete(w http.ResponseWriter, r *http.Request) error {
	login := chi.URLParam(r, "login")
	user, err := s.store.GetUser(r.Context(), login)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NotFound(
			fmt.Sprintf("User with login '%s' not found.", login),
			"Make sure that the user has been registered before attempting to delete their account.",
		)
	}
	if err := s.store.DeleteUser(r.Context(), user); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
