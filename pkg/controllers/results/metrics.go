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

package results

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mailraid/mailraid/pkg/metrics"
)

var (
	receivedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "results",
			Name:      "received_messages",
			Help:      "Count of messages received from the results queue.",
		},
	)
	deletedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "results",
			Name:      "deleted_messages",
			Help:      "Count of messages deleted from the results queue.",
		},
	)
	discardedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "results",
			Name:      "discarded_messages",
			Help:      "Count of results dropped because they were unparseable or referenced an unknown job.",
		},
	)
	completedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "results",
			Name:      "completed_jobs",
			Help:      "Count of jobs transitioned to their terminal state by a worker result.",
		},
	)
	creditedSolves = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "results",
			Name:      "credited_solves",
			Help:      "Count of first-time scenario solves credited to teams.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(receivedMessages, deletedMessages, discardedMessages, completedJobs, creditedSolves)
}
