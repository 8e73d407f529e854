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

// Package errors defines the error kinds surfaced at the HTTP boundary and
// classification helpers for AWS SDK failures. Every user-visible failure
// carries an actionable advice string alongside the message.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
)

// APIError is an error with a fixed HTTP status and operator-facing advice.
type APIError struct {
	Status  int
	Message string
	Advice  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsAPIError unwraps err into an APIError if one is in the chain.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NotAuthenticated reports a missing or invalid credential.
func NotAuthenticated() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Message: "You have not provided a valid API key in the Authorization header.",
		Advice:  "Please provide your API key in the Authorization header as 'Bearer <your api key>' and try again.",
	}
}

// NotAuthorized reports a role or team membership failure.
func NotAuthorized() *APIError {
	return &APIError{
		Status:  http.StatusForbidden,
		Message: "You are not authorized to access this resource.",
		Advice:  "Please make sure that you have the appropriate permissions and try again. You may need to contact a member of the team to be added.",
	}
}

// BadRequest reports a malformed or invalid request.
func BadRequest(message, advice string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message, Advice: advice}
}

// NotFound reports an absent entity.
func NotFound(message, advice string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: message, Advice: advice}
}

// Conflict reports a uniqueness or cardinality violation.
func Conflict(message, advice string) *APIError {
	return &APIError{Status: http.StatusConflict, Message: message, Advice: advice}
}

// RateLimited reports bucket or total-quota exhaustion.
func RateLimited() *APIError {
	return &APIError{
		Status:  http.StatusTooManyRequests,
		Message: "You have exceeded your job submission rate limit and cannot submit more jobs at this time.",
		Advice:  "Please wait a few minutes and try again, we also recommend spacing out your submissions to avoid hitting limits. Keep in mind that rate limits are enforced at the team level.",
	}
}

// Internal reports an unexpected failure; the response body carries the trace
// id for support correlation.
func Internal() *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Message: "An unexpected error occurred while processing your request.",
		Advice:  "If you repeatedly experience this issue, please report it to the competition organizers along with the included trace ID.",
	}
}

// This is not an exhaustive list, add to it as needed
var notFoundErrorCodes = map[string]struct{}{
	"ResourceNotFoundException":               {},
	"AWS.SimpleQueueService.NonExistentQueue": {},
	"QueueDoesNotExist":                       {},
}

// IsNotFound returns true if the err is an AWS error (even if it's wrapped)
// and is known to mean "not found" (as opposed to a more serious or
// unexpected error)
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := notFoundErrorCodes[apiErr.ErrorCode()]
		return ok
	}
	return false
}

// IsQueueExists returns true if the err reports that a queue already exists
// with a different configuration
func IsQueueExists(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "QueueNameExists"
	}
	return false
}
