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

// Package webapi serves the competition's HTTP API. Handlers are stateless:
// every piece of persistent state lives behind the storage and queue ports,
// so any number of replicas can serve the same tables.
package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/auth"
	"github.com/mailraid/mailraid/pkg/logging"
	"github.com/mailraid/mailraid/pkg/operator/options"
	"github.com/mailraid/mailraid/pkg/queues"
	"github.com/mailraid/mailraid/pkg/ratelimit"
	"github.com/mailraid/mailraid/pkg/storage"
)

const (
	// Scenario definitions only change on redeploy, so a short cache keeps
	// the hot submission path off storage.
	scenarioCacheTTL     = time.Minute
	scenarioCacheCleanup = 10 * time.Minute
)

type Server struct {
	opts      *options.Options
	store     storage.Store
	queues    *queues.Registry
	identity  auth.IdentityProvider
	clock     clock.Clock
	logger    *zap.SugaredLogger
	scenarios *gocache.Cache
	allowlist map[string]struct{}
}

func NewServer(opts *options.Options, store storage.Store, registry *queues.Registry,
	identity auth.IdentityProvider, clk clock.Clock, logger *zap.SugaredLogger) *Server {
	return &Server{
		opts:      opts,
		store:     store,
		queues:    registry,
		identity:  identity,
		clock:     clk,
		logger:    logger,
		scenarios: gocache.New(scenarioCacheTTL, scenarioCacheCleanup),
		allowlist: lo.SliceToMap(opts.SignupAllowlist, func(login string) (string, struct{}) {
			return strings.ToLower(login), struct{}{}
		}),
	}
}

// Router assembles the full API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(s.withLogger, s.instrumented, s.maybeAuthenticated)

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/login", s.handle(s.authLogin))
		r.Get("/auth/callback", s.handle(s.authCallback))
		r.Get("/auth/me", s.handle(s.authenticated(s.authMe)))
		r.Get("/auth/logout", s.handle(s.authenticated(s.authLogout)))
		r.Post("/auth/rotate-key", s.handle(s.authenticated(s.authRotateKey)))

		r.Get("/scenarios", s.handle(s.scenariosList))
		r.Get("/leaderboard", s.handle(s.leaderboardGet))

		r.Get("/teams", s.handle(s.teamsList))
		r.Post("/teams", s.handle(s.authenticated(s.teamsCreate)))
		r.Get("/teams/{team_id}", s.handle(s.authenticated(s.teamGet)))
		r.Patch("/teams/{team_id}", s.handle(s.authenticated(s.teamMembership(s.teamUpdate))))
		r.Delete("/teams/{team_id}", s.handle(s.authenticated(s.teamMembership(s.teamDelete))))
		r.Post("/teams/{team_id}/enable", s.handle(s.authenticated(s.role(apis.RoleAdmin, s.teamEnable))))
		r.Post("/teams/{team_id}/disable", s.handle(s.authenticated(s.role(apis.RoleAdmin, s.teamDisable))))

		r.Post("/teams/{team_id}/jobs", s.handle(s.authenticated(s.teamMembership(s.jobsCreate))))
		r.Get("/teams/{team_id}/jobs", s.handle(s.authenticated(s.teamMembership(s.jobsList))))
		r.Get("/teams/{team_id}/jobs/{job_id}", s.handle(s.authenticated(s.teamMembership(s.jobGet))))

		r.Get("/users", s.handle(s.authenticated(s.role(apis.RoleAdmin, s.usersList))))
		r.Get("/users/{login}", s.handle(s.authenticated(s.role(apis.RoleAdmin, s.userGet))))
		r.Patch("/users/{login}", s.handle(s.authenticated(s.role(apis.RoleAdmin, s.userUpdate))))
		r.Delete("/users/{login}", s.handle(s.authenticated(s.role(apis.RoleAdmin, s.userDelete))))

		r.Get("/internal/healthcheck", s.handle(s.internalHealthcheck))
		r.Post("/internal/setup", s.handle(s.internalSetup))
		r.Post("/internal/repair-team-membership", s.handle(s.authenticated(s.role(apis.RoleAdmin, s.internalRepairTeamMembership))))
	})
	return r
}

// Start serves the API until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.opts.APIPort),
		Handler:     s.Router(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// limiterFor builds the token bucket for a team, honoring per-team overrides.
// Non-positive overrides are treated as unset since the limiter needs a
// positive refill rate and bucket size.
func (s *Server) limiterFor(team *apis.Team) *ratelimit.Limiter {
	sustained := s.opts.RateLimitSustained
	if override := lo.FromPtr(team.RateLimitSustained); override > 0 {
		sustained = override
	}
	burst := s.opts.RateLimitBurst
	if override := lo.FromPtr(team.RateLimitBurst); override > 0 {
		burst = override
	}
	return ratelimit.NewLimiter(s.clock, sustained, burst)
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func readJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithLogger(r.Context(), s.logger.Named("webapi"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
