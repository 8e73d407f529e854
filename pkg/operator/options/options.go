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

package options

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/utils/env"
)

// Options for running this binary
type Options struct {
	*flag.FlagSet
	// Serving
	APIPort     int
	MetricsPort int
	Debug       bool
	// Competition
	Phase               int
	LaunchDate          string
	EndDate             string
	LeaderboardInterval time.Duration
	RateLimitSustained  float64
	RateLimitBurst      int
	RateLimitTotal      int
	SignupAllowlist     []string
	// Auth
	GithubClientID     string
	GithubClientSecret string
	GithubRedirectURI  string
	// AWS Specific
	TablePrefix      string
	DynamoDBEndpoint string
	SQSEndpoint      string

	launchTime time.Time
	endTime    time.Time
}

// New creates an Options struct and registers CLI flags and environment variables to fill-in the Options struct fields
func New() *Options {
	opts := &Options{}
	f := flag.NewFlagSet("controlplane", flag.ContinueOnError)
	opts.FlagSet = f

	// Serving
	f.IntVar(&opts.APIPort, "api-port", env.WithDefaultInt("API_PORT", 8080), "The port the HTTP API binds to")
	f.IntVar(&opts.MetricsPort, "metrics-port", env.WithDefaultInt("METRICS_PORT", 8081), "The port the metric endpoint binds to for operating metrics about the control plane itself")
	f.BoolVar(&opts.Debug, "debug", env.WithDefaultBool("DEBUG", false), "Enable debug logging")

	// Competition
	f.IntVar(&opts.Phase, "phase", env.WithDefaultInt("COMPETITION_PHASE", 1), "The active competition phase. Only this phase's scenarios accept submissions and appear in listings")
	f.StringVar(&opts.LaunchDate, "launch-date", env.WithDefaultString("LAUNCH_DATE", "2025-03-13T11:00:00Z"), "RFC3339 time at which competitors may start submitting jobs")
	f.StringVar(&opts.EndDate, "end-date", env.WithDefaultString("END_DATE", "2025-04-17T11:59:00Z"), "RFC3339 time after which competitor submissions are rejected")
	f.DurationVar(&opts.LeaderboardInterval, "leaderboard-interval", env.WithDefaultDuration("LEADERBOARD_INTERVAL", 30*time.Second), "How often the leaderboard is rebuilt from team state")
	f.Float64Var(&opts.RateLimitSustained, "rate-limit-sustained", env.WithDefaultFloat64("RATE_LIMIT_SUSTAINED", 1.0), "Default sustained submission rate per team in requests per minute. Teams may carry individual overrides")
	f.IntVar(&opts.RateLimitBurst, "rate-limit-burst", env.WithDefaultInt("RATE_LIMIT_BURST", 10), "Default submission burst size per team")
	f.IntVar(&opts.RateLimitTotal, "rate-limit-total", env.WithDefaultInt("RATE_LIMIT_TOTAL", 60000), "Default lifetime submission quota per team")
	opts.SignupAllowlist = env.WithDefaultStringSlice("SIGNUP_ALLOWLIST", nil)

	// Auth
	f.StringVar(&opts.GithubClientID, "github-client-id", env.WithDefaultString("GITHUB_CLIENT_ID", ""), "GitHub OAuth application client id. When empty, login falls back to a deterministic local identity for development")
	f.StringVar(&opts.GithubClientSecret, "github-client-secret", env.WithDefaultString("GITHUB_CLIENT_SECRET", ""), "GitHub OAuth application client secret")
	f.StringVar(&opts.GithubRedirectURI, "github-redirect-uri", env.WithDefaultString("GITHUB_REDIRECT_URI", ""), "OAuth callback URL registered with the GitHub application")

	// AWS Specific
	f.StringVar(&opts.TablePrefix, "table-prefix", env.WithDefaultString("TABLE_PREFIX", ""), "Prefix applied to every DynamoDB table name, for sharing an account between environments")
	f.StringVar(&opts.DynamoDBEndpoint, "dynamodb-endpoint", env.WithDefaultString("DYNAMODB_ENDPOINT", ""), "Override for the DynamoDB endpoint, e.g. a local emulator")
	f.StringVar(&opts.SQSEndpoint, "sqs-endpoint", env.WithDefaultString("SQS_ENDPOINT", ""), "Override for the SQS endpoint, e.g. a local emulator")
	return opts
}

// MustParse reads the user passed flags, environment variables, and default values.
// Options are validated and panics if an error is returned
func (o *Options) MustParse() *Options {
	err := o.Parse(os.Args[1:])

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		panic(err)
	}
	if err := o.Validate(); err != nil {
		panic(err)
	}
	return o
}

func (o *Options) Validate() (err error) {
	if o.Phase != 1 && o.Phase != 2 {
		err = multierr.Append(err, fmt.Errorf("COMPETITION_PHASE may only be either 1 or 2"))
	}
	if o.RateLimitSustained <= 0 {
		err = multierr.Append(err, fmt.Errorf("RATE_LIMIT_SUSTAINED must be positive"))
	}
	if o.RateLimitBurst <= 0 {
		err = multierr.Append(err, fmt.Errorf("RATE_LIMIT_BURST must be positive"))
	}
	if o.LeaderboardInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("LEADERBOARD_INTERVAL must be positive"))
	}
	launch, launchErr := apis.ParseTimestamp(o.LaunchDate)
	if launchErr != nil {
		err = multierr.Append(err, fmt.Errorf("\"%s\" not a valid LAUNCH_DATE", o.LaunchDate))
	}
	end, endErr := apis.ParseTimestamp(o.EndDate)
	if endErr != nil {
		err = multierr.Append(err, fmt.Errorf("\"%s\" not a valid END_DATE", o.EndDate))
	}
	if launchErr == nil && endErr == nil && !end.After(launch) {
		err = multierr.Append(err, fmt.Errorf("END_DATE must be after LAUNCH_DATE"))
	}
	o.launchTime, o.endTime = launch, end
	return err
}

// LaunchTime returns the parsed launch date. Valid only after Validate.
func (o *Options) LaunchTime() time.Time { return o.launchTime }

// EndTime returns the parsed end date. Valid only after Validate.
func (o *Options) EndTime() time.Time { return o.endTime }
