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
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/auth"
	"github.com/mailraid/mailraid/pkg/errors"
	"github.com/mailraid/mailraid/pkg/logging"
)

// handlerFunc is an http.HandlerFunc that reports failures instead of writing
// them. handle converts returned errors into the JSON error body, so handlers
// only ever encode their success path.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// errorBody is the wire shape of every failure.
type errorBody struct {
	Message string `json:"message"`
	Advice  string `json:"advice"`
	TraceID string `json:"trace_id"`
}

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		apiErr, ok := errors.IsAPIError(err)
		if !ok {
			logging.FromContext(r.Context()).Errorf("handling %s %s, %s", r.Method, r.URL.Path, err)
			apiErr = errors.Internal()
		}
		httpErrors.WithLabelValues(http.StatusText(apiErr.Status)).Inc()
		_ = writeJSON(w, apiErr.Status, errorBody{
			Message: apiErr.Message,
			Advice:  apiErr.Advice,
			TraceID: traceID(r.Context()),
		})
	}
}

func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

type userKey struct{}

// maybeAuthenticated resolves the request credential into a stored user and
// attaches it to the context. Anonymous and invalid credentials both come out
// as no user; handlers that require one wrap with authenticated.
func (s *Server) maybeAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.Authenticate(r.Context(), s.store, r)
		if err != nil {
			logging.FromContext(r.Context()).Errorf("authenticating request, %s", err)
		}
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), userKey{}, user))
		}
		next.ServeHTTP(w, r)
	})
}

// userFrom returns the authenticated user attached by maybeAuthenticated, or
// nil for anonymous requests.
func userFrom(ctx context.Context) *apis.User {
	user, _ := ctx.Value(userKey{}).(*apis.User)
	return user
}

// authenticated rejects anonymous requests.
func (s *Server) authenticated(h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if userFrom(r.Context()) == nil {
			return errors.NotAuthenticated()
		}
		return h(w, r)
	}
}

// role rejects users whose role is not one of the given roles.
func (s *Server) role(roles string, h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if userFrom(r.Context()).Role != roles {
			return errors.NotAuthorized()
		}
		return h(w, r)
	}
}

// teamMembership rejects callers who are neither a member of the addressed
// team nor an admin. Must wrap inside authenticated.
func (s *Server) teamMembership(h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		user := userFrom(r.Context())
		teamID, err := s.teamID(r)
		if err != nil {
			return err
		}
		if user.Role != apis.RoleAdmin && (user.Team == nil || *user.Team != teamID) {
			return errors.NotAuthorized()
		}
		return h(w, r)
	}
}

// teamID resolves the {team_id} path parameter, translating "mine" into the
// caller's team.
func (s *Server) teamID(r *http.Request) (string, error) {
	teamID := chi.URLParam(r, "team_id")
	if teamID == "mine" {
		if user := userFrom(r.Context()); user != nil && user.Team != nil {
			return *user.Team, nil
		}
		teamID = ""
	}
	if teamID == "" {
		return "", errors.BadRequest(
			"Your request URL does not include a valid team ID in the /api/teams/{team_id}/... portion of the request.",
			"Please make sure that you have filled in your team ID correctly when creating the URL, or if you are using /api/teams/mine/... ensure that you are a member of a team.",
		)
	}
	return teamID, nil
}

// instrumented records request counts and latencies per route pattern.
func (s *Server) instrumented(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		httpRequests.WithLabelValues(r.Method, pattern).Inc()
		httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
