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
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mailraid/mailraid/pkg/awsapi"
)

const queueURLPrefix = "https://sqs.us-west-2.amazonaws.com/000000000000/"

// SQSBehavior must be reset between tests otherwise tests will
// pollute each other.
type SQSBehavior struct {
	GetQueueURLBehavior    MockedFunction[sqs.GetQueueUrlInput, sqs.GetQueueUrlOutput]
	CreateQueueBehavior    MockedFunction[sqs.CreateQueueInput, sqs.CreateQueueOutput]
	SendMessageBehavior    MockedFunction[sqs.SendMessageInput, sqs.SendMessageOutput]
	ReceiveMessageBehavior MockedFunction[sqs.ReceiveMessageInput, sqs.ReceiveMessageOutput]
	DeleteMessageBehavior  MockedFunction[sqs.DeleteMessageInput, sqs.DeleteMessageOutput]
}

// SQSAPI is an in-memory SQS. The default behavior backs each queue URL with a
// slice of pending messages so send/receive/delete round trips work without a
// real queue; the mocked behaviors let tests override any single call.
type SQSAPI struct {
	awsapi.SQSAPI
	SQSBehavior

	mu     sync.Mutex
	queues map[string][]sqstypes.Message
}

func NewSQSAPI() *SQSAPI {
	return &SQSAPI{queues: map[string][]sqstypes.Message{}}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (s *SQSAPI) Reset() {
	s.GetQueueURLBehavior.Reset()
	s.CreateQueueBehavior.Reset()
	s.SendMessageBehavior.Reset()
	s.ReceiveMessageBehavior.Reset()
	s.DeleteMessageBehavior.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues = map[string][]sqstypes.Message{}
}

//nolint:revive,stylecheck
func (s *SQSAPI) GetQueueUrl(_ context.Context, input *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	return s.GetQueueURLBehavior.Invoke(input, func(input *sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error) {
		return &sqs.GetQueueUrlOutput{
			QueueUrl: aws.String(queueURLPrefix + aws.ToString(input.QueueName)),
		}, nil
	})
}

func (s *SQSAPI) CreateQueue(_ context.Context, input *sqs.CreateQueueInput, _ ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error) {
	return s.CreateQueueBehavior.Invoke(input, func(input *sqs.CreateQueueInput) (*sqs.CreateQueueOutput, error) {
		url := queueURLPrefix + aws.ToString(input.QueueName)
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.queues[url]; !ok {
			s.queues[url] = nil
		}
		return &sqs.CreateQueueOutput{QueueUrl: aws.String(url)}, nil
	})
}

func (s *SQSAPI) SendMessage(_ context.Context, input *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return s.SendMessageBehavior.Invoke(input, func(input *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
		messageID := uuid.NewString()
		s.mu.Lock()
		defer s.mu.Unlock()
		url := aws.ToString(input.QueueUrl)
		s.queues[url] = append(s.queues[url], sqstypes.Message{
			MessageId:     aws.String(messageID),
			ReceiptHandle: aws.String(uuid.NewString()),
			Body:          input.MessageBody,
		})
		return &sqs.SendMessageOutput{MessageId: aws.String(messageID)}, nil
	})
}

func (s *SQSAPI) ReceiveMessage(_ context.Context, input *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return s.ReceiveMessageBehavior.Invoke(input, func(input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		pending := s.queues[aws.ToString(input.QueueUrl)]
		count := lo.Min([]int{len(pending), int(input.MaxNumberOfMessages)})
		return &sqs.ReceiveMessageOutput{Messages: pending[:count]}, nil
	})
}

func (s *SQSAPI) DeleteMessage(_ context.Context, input *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return s.DeleteMessageBehavior.Invoke(input, func(input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		url := aws.ToString(input.QueueUrl)
		s.queues[url] = lo.Reject(s.queues[url], func(m sqstypes.Message, _ int) bool {
			return aws.ToString(m.ReceiptHandle) == aws.ToString(input.ReceiptHandle)
		})
		return &sqs.DeleteMessageOutput{}, nil
	})
}

// QueueDepth reports the number of pending messages on the named queue.
func (s *SQSAPI) QueueDepth(queueName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[queueURLPrefix+queueName])
}

// SentBodies returns the bodies currently pending on the named queue.
func (s *SQSAPI) SentBodies(queueName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.queues[queueURLPrefix+queueName], func(m sqstypes.Message, _ int) string {
		return aws.ToString(m.Body)
	})
}

var _ awsapi.SQSAPI = (*SQSAPI)(nil)
