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

// Package ratelimit implements a token bucket expressed as a single watermark
// timestamp, so admission can be evaluated statelessly per request: load the
// team's watermark, evaluate, persist the new watermark on admission.
package ratelimit

import (
	"time"

	"k8s.io/utils/clock"
)

// Limiter is a token bucket over a stored watermark. The watermark is the
// bucket's virtual time: the latest moment at which the bucket has been
// considered empty. Admitting a request advances it by one request cost.
type Limiter struct {
	sustainedRate float64 // requests per minute
	burstSize     int

	requestCost time.Duration
	maxAge      time.Duration

	clk clock.Clock
}

// NewLimiter builds a limiter admitting sustainedRate requests per minute
// with bursts of up to burstSize requests.
func NewLimiter(clk clock.Clock, sustainedRate float64, burstSize int) *Limiter {
	requestCost := time.Duration(60.0 / sustainedRate * float64(time.Second))
	return &Limiter{
		sustainedRate: sustainedRate,
		burstSize:     burstSize,
		requestCost:   requestCost,
		maxAge:        time.Duration(burstSize) * requestCost,
		clk:           clk,
	}
}

// TryMakeRequest evaluates admission against the stored watermark, given in
// Unix seconds (nil means the team has never submitted). It returns whether
// the request is admitted together with the updated watermark; on rejection
// the watermark is unchanged apart from staleness clamping. The caller
// persists the returned watermark only on admission.
func (l *Limiter) TryMakeRequest(watermark *float64) (bool, time.Time) {
	now := l.clk.Now()

	w := now.Add(-l.maxAge)
	if watermark != nil {
		stored := unixToTime(*watermark)
		if stored.After(w) {
			w = stored
		}
	}

	if next := w.Add(l.requestCost); !next.After(now) {
		return true, next
	}
	return false, w
}

func unixToTime(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second))).UTC()
}
