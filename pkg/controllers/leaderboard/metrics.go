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

package leaderboard

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mailraid/mailraid/pkg/metrics"
)

var (
	builds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "leaderboard",
			Name:      "builds",
			Help:      "Count of successful leaderboard builds.",
		},
	)
	buildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "leaderboard",
			Name:      "build_duration_seconds",
			Help:      "Duration of the leaderboard build in seconds.",
			Buckets:   metrics.DurationBuckets(),
		},
	)
)

func init() {
	metrics.Registry.MustRegister(builds, buildDuration)
}
