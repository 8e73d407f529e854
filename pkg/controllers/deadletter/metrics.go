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

package deadletter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mailraid/mailraid/pkg/metrics"
)

var (
	deadLetteredMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "deadletter",
			Name:      "received_messages",
			Help:      "Count of messages received from the dead-letter queue.",
		},
	)
	failedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "deadletter",
			Name:      "failed_jobs",
			Help:      "Count of jobs closed out as permanently failed.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(deadLetteredMessages, failedJobs)
}
