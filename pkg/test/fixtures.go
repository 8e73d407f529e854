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

// Package test provides entity factories for tests. Every factory returns a
// valid entity with randomized identity; callers override fields through
// mutator functions.
package test

import (
	"strings"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/google/uuid"

	"github.com/mailraid/mailraid/pkg/apis"
)

// Team returns an enabled team with one random member.
func Team(overrides ...func(*apis.Team)) *apis.Team {
	team := apis.NewTeam(randomdata.SillyName(), Login())
	for _, override := range overrides {
		override(team)
	}
	return team
}

// User returns a competitor account.
func User(overrides ...func(*apis.User)) *apis.User {
	user := apis.NewUser(Login())
	for _, override := range overrides {
		override(user)
	}
	return user
}

// Scenario returns a phase-1 scenario on the plain dispatch queue.
func Scenario(overrides ...func(*apis.Scenario)) *apis.Scenario {
	scenario := &apis.Scenario{
		ScenarioID:  strings.ToLower(uuid.NewString()[:8]),
		Name:        randomdata.SillyName(),
		Description: randomdata.Paragraph(),
		Objectives:  []string{"email.retrieved", "exfil.sent"},
		Metadata:    map[string]string{"model": "Phi3", "defense": "spotlight"},
		Workqueue:   "dispatch",
		Phase:       1,
	}
	for _, override := range overrides {
		override(scenario)
	}
	return scenario
}

// Job returns a freshly scheduled job for the given team and scenario.
func Job(teamID, scenarioID string, overrides ...func(*apis.JobRecord)) *apis.JobRecord {
	job := apis.NewJobRecord(teamID, scenarioID, randomdata.SillyName(), randomdata.Paragraph(), time.Now().UTC())
	for _, override := range overrides {
		override(job)
	}
	return job
}

// Result returns a solving result for the given job.
func Result(job *apis.JobRecord, overrides ...func(*apis.JobResult)) *apis.JobResult {
	now := time.Now().UTC()
	result := &apis.JobResult{
		TeamID:        job.TeamID,
		JobID:         job.JobID,
		StartedTime:   apis.Timestamp(now.Add(-time.Minute)),
		CompletedTime: apis.Timestamp(now),
		Output:        randomdata.Paragraph(),
		Objectives:    map[string]bool{"email.retrieved": true, "exfil.sent": true},
	}
	for _, override := range overrides {
		override(result)
	}
	return result
}

// Login returns a random lowercase login.
func Login() string {
	return strings.ToLower(randomdata.SillyName())
}
