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
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/errors"
	"github.com/mailraid/mailraid/pkg/logging"
)

func (s *Server) jobsCreate(w http.ResponseWriter, r *http.Request) error {
	logger := logging.FromContext(r.Context())
	user := userFrom(r.Context())

	teamID, err := s.teamID(r)
	if err != nil {
		return err
	}

	// Admins may submit outside the competition window, e.g. to smoke-test
	// scenarios before launch.
	if user.Role == apis.RoleCompetitor {
		now := s.clock.Now()
		if now.Before(s.opts.LaunchTime()) {
			return errors.BadRequest(
				"The competition has not started yet, and job submissions are blocked until the competition begins.",
				fmt.Sprintf("The competition will start at %s, and try again after the competition has started.", s.opts.LaunchTime().Format("2006-01-02T15:04:05-07:00")),
			)
		}
		if now.After(s.opts.EndTime()) {
			return errors.BadRequest(
				"This phase of the competition has ended and we are no longer accepting job submissions. Please wait for announcements regarding the next phase of the competition to start.",
				fmt.Sprintf("This phase of the competition ended on %s, and you can no longer submit jobs. Please wait for the next phase of the competition to start.", s.opts.EndTime().Format("2006-01-02T15:04:05-07:00")),
			)
		}
	}

	team, err := s.store.GetTeam(r.Context(), teamID)
	if err != nil {
		return err
	}
	if team == nil || !team.IsEnabled {
		logger.Warnf("job creation blocked, team %s is missing or disabled", teamID)
		return errors.BadRequest(
			"The team you attempted to schedule a job for does not exist or is not enabled.",
			"Please make sure that you are using the correct team ID and that the competition is still active.",
		)
	}

	allowed, watermark := s.limiterFor(team).TryMakeRequest(team.RateLimitWatermark)
	if allowed && team.RateLimitCounter >= lo.FromPtrOr(team.RateLimitTotal, s.opts.RateLimitTotal) {
		allowed = false
	}
	if !allowed {
		logger.Warnf("rate limit exceeded for team %s (counter: %d)", teamID, team.RateLimitCounter)
		rateLimitedRequests.Inc()
		return errors.RateLimited()
	}

	body := struct {
		Scenario string `json:"scenario"`
		Subject  string `json:"subject"`
		Body     string `json:"body"`
	}{}
	if err := readJSON(r, &body); err != nil || body.Scenario == "" || body.Subject == "" || body.Body == "" {
		return errors.BadRequest(
			"The job definition you provided could not be parsed or was missing a required property.",
			"Please make sure that you are using the correct job definition format and that your request contains valid JSON before trying again.",
		)
	}

	scenario, err := s.scenario(r.Context(), body.Scenario)
	if err != nil {
		return err
	}
	if scenario == nil || scenario.Phase != s.opts.Phase {
		return errors.BadRequest(
			"The scenario you specified for the job does not exist or is not enabled.",
			"Please make sure that you are using the correct scenario ID and that the competition is still active.",
		)
	}

	job := apis.NewJobRecord(teamID, body.Scenario, body.Subject, body.Body, s.clock.Now())
	if err := s.store.UpsertJob(r.Context(), job); err != nil {
		return err
	}
	if _, err := s.queues.Get(scenario.Workqueue).SendMessage(r.Context(), job.BuildMessage(r.Context())); err != nil {
		return fmt.Errorf("dispatching job %s, %w", job.JobID, err)
	}

	// The watermark and counter are persisted after the enqueue succeeds: a
	// crash in between costs at most one admission slot, never a lost job.
	team.SetWatermark(watermark)
	team.RateLimitCounter++
	if err := s.store.UpsertTeam(r.Context(), team); err != nil {
		return err
	}

	logger.Infof("job %s created for team %s and dispatched to %s", job.JobID, teamID, scenario.Workqueue)
	submittedJobs.Inc()
	w.Header().Set("Location", fmt.Sprintf("/api/teams/%s/jobs/%s", teamID, job.JobID))
	return writeJSON(w, http.StatusCreated, job.View())
}

func (s *Server) jobsList(w http.ResponseWriter, r *http.Request) error {
	teamID, err := s.teamID(r)
	if err != nil {
		return err
	}
	jobs, err := s.store.ListJobs(r.Context(), teamID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, lo.Map(jobs, func(j *apis.JobRecord, _ int) apis.JobView {
		return j.View()
	}))
}

func (s *Server) jobGet(w http.ResponseWriter, r *http.Request) error {
	teamID, err := s.teamID(r)
	if err != nil {
		return err
	}
	job, err := s.store.GetJob(r.Context(), teamID, chi.URLParam(r, "job_id"))
	if err != nil {
		return err
	}
	if job == nil {
		return errors.NotFound(
			"The job you requested could not be found.",
			"Please make sure that you have provided the correct team and job ID fields in your request.",
		)
	}
	return writeJSON(w, http.StatusOK, job.View())
}

// scenario loads a scenario through the short-lived cache. Definitions only
// change on redeploy; the cached copy's solve counter may trail storage.
func (s *Server) scenario(ctx context.Context, scenarioID string) (*apis.Scenario, error) {
	if cached, ok := s.scenarios.Get(scenarioID); ok {
		return cached.(*apis.Scenario), nil
	}
	scenario, err := s.store.GetScenario(ctx, scenarioID)
	if err != nil || scenario == nil {
		return scenario, err
	}
	s.scenarios.Set(scenarioID, scenario, gocache.DefaultExpiration)
	return scenario, nil
}
