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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mailraid/mailraid/pkg/metrics"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "webapi",
			Name:      "requests",
			Help:      "Count of HTTP requests served. Labeled by method and route pattern.",
		},
		[]string{"method", "route"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "webapi",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP request handling in seconds. Labeled by method and route pattern.",
			Buckets:   metrics.DurationBuckets(),
		},
		[]string{"method", "route"},
	)
	httpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "webapi",
			Name:      "errors",
			Help:      "Count of HTTP error responses. Labeled by status text.",
		},
		[]string{"status"},
	)
	submittedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "webapi",
			Name:      "submitted_jobs",
			Help:      "Count of jobs accepted and dispatched.",
		},
	)
	rateLimitedRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "webapi",
			Name:      "rate_limited_requests",
			Help:      "Count of job submissions rejected by the token bucket or total quota.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(httpRequests, httpRequestDuration, httpErrors, submittedJobs, rateLimitedRequests)
}
