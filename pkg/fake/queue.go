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

package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/queues"
)

// Queue is an in-memory queues.Provider for driving consumers in tests.
// Messages stay pending until deleted, mirroring the visibility timeout
// redelivery contract. SendError and ReceiveError, when set, fail the next
// corresponding call.
type Queue struct {
	SendError    AtomicError
	ReceiveError AtomicError

	name string

	mu      sync.Mutex
	pending []sqstypes.Message
}

func NewQueue(name string) *Queue {
	return &Queue{name: name}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (q *Queue) Reset() {
	q.SendError.Reset()
	q.ReceiveError.Reset()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) SendMessage(_ context.Context, body interface{}) (string, error) {
	if err := q.SendError.Get(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling the passed body as json, %w", err)
	}
	messageID := uuid.NewString()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, sqstypes.Message{
		MessageId:     aws.String(messageID),
		ReceiptHandle: aws.String(uuid.NewString()),
		Body:          aws.String(string(raw)),
	})
	return messageID, nil
}

func (q *Queue) GetMessages(_ context.Context) ([]sqstypes.Message, error) {
	if err := q.ReceiveError.Get(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	count := lo.Min([]int{len(q.pending), 10})
	return append([]sqstypes.Message{}, q.pending[:count]...), nil
}

func (q *Queue) DeleteMessage(_ context.Context, receiptHandle *string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = lo.Reject(q.pending, func(m sqstypes.Message, _ int) bool {
		return aws.ToString(m.ReceiptHandle) == aws.ToString(receiptHandle)
	})
	return nil
}

// Depth reports the number of pending messages.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

var _ queues.Provider = (*Queue)(nil)
