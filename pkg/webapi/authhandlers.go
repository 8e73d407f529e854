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
	"strings"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/auth"
	"github.com/mailraid/mailraid/pkg/errors"
	"github.com/mailraid/mailraid/pkg/logging"
)

// authView is the auth endpoints' projection of a user: the regular view plus
// the bearer token, which only ever leaves through these endpoints.
type authView struct {
	apis.UserView
	APIKey string `json:"api_key"`
}

func (s *Server) authLogin(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, s.identity.LoginURL(), http.StatusFound)
	return nil
}

func (s *Server) authCallback(w http.ResponseWriter, r *http.Request) error {
	identity, err := s.identity.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return err
	}

	user, err := s.store.GetUser(r.Context(), identity.Login)
	if err != nil {
		return err
	}
	if user == nil {
		user = apis.NewUser(identity.Login)
		if _, allowed := s.allowlist[strings.ToLower(identity.Login)]; len(s.allowlist) > 0 && !allowed {
			user.Blocked = true
		}
		if err := s.store.UpsertUser(r.Context(), user); err != nil {
			return err
		}
		logging.FromContext(r.Context()).Infof("registered user %s", user.Login)
	}

	if user.Blocked {
		return &errors.APIError{
			Status:  http.StatusForbidden,
			Message: "The competition hasn't started yet.",
			Advice:  "Please monitor the competition website for updates on the start date. Thank you for your patience.",
		}
	}

	auth.SetCookie(w, user.AuthToken())
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

func (s *Server) authMe(w http.ResponseWriter, r *http.Request) error {
	user := userFrom(r.Context())
	return writeJSON(w, http.StatusOK, authView{UserView: user.View(), APIKey: user.AuthToken()})
}

func (s *Server) authLogout(w http.ResponseWriter, r *http.Request) error {
	auth.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

func (s *Server) authRotateKey(w http.ResponseWriter, r *http.Request) error {
	user := userFrom(r.Context())
	user.RotateAPIKey()
	if err := s.store.UpsertUser(r.Context(), user); err != nil {
		return err
	}
	auth.SetCookie(w, user.AuthToken())
	return writeJSON(w, http.StatusOK, authView{UserView: user.View(), APIKey: user.AuthToken()})
}
