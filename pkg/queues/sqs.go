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

// Package queues provides the named work queue port on top of SQS. Delivery
// is best-effort FIFO with a visibility timeout; consumers must be idempotent
// on the job id because redelivery reorders messages.
package queues

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/mailraid/mailraid/pkg/awsapi"
	"github.com/mailraid/mailraid/pkg/errors"
)

// Well-known queue names. Dispatch queues are chosen per scenario; results
// and dead-letter flow back from the workers.
const (
	QueueDispatch            = "dispatch"
	QueueDispatchTaskTracker = "dispatch-tasktracker"
	QueueResults             = "results"
	QueueDeadLetter          = "dead-letter"
)

// Provider is a single named work queue.
type Provider interface {
	Name() string
	SendMessage(context.Context, interface{}) (string, error)
	GetMessages(context.Context) ([]sqstypes.Message, error)
	DeleteMessage(context.Context, *string) error
}

// DefaultProvider implements Provider on SQS, resolving and caching the queue
// URL on first use.
type DefaultProvider struct {
	client    awsapi.SQSAPI
	queueName string

	mu       sync.Mutex
	queueURL string
}

func NewDefaultProvider(client awsapi.SQSAPI, queueName string) *DefaultProvider {
	return &DefaultProvider{client: client, queueName: queueName}
}

func (p *DefaultProvider) Name() string {
	return p.queueName
}

func (p *DefaultProvider) SendMessage(ctx context.Context, body interface{}) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling the passed body as json, %w", err)
	}
	queueURL, err := p.discoverQueueURL(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching queue url, %w", err)
	}
	result, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		MessageBody: aws.String(string(raw)),
		QueueUrl:    aws.String(queueURL),
	})
	if err != nil {
		return "", fmt.Errorf("sending messages to sqs queue, %w", err)
	}
	return aws.ToString(result.MessageId), nil
}

func (p *DefaultProvider) GetMessages(ctx context.Context) ([]sqstypes.Message, error) {
	queueURL, err := p.discoverQueueURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching queue url, %w", err)
	}
	result, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		MaxNumberOfMessages: 10,
		VisibilityTimeout:   20, // Seconds
		WaitTimeSeconds:     20, // Seconds, maximum for long polling
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
			sqstypes.MessageSystemAttributeNameSentTimestamp,
			sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
		},
		QueueUrl: aws.String(queueURL),
	})
	if err != nil {
		return nil, fmt.Errorf("receiving sqs messages, %w", err)
	}
	return result.Messages, nil
}

func (p *DefaultProvider) DeleteMessage(ctx context.Context, receiptHandle *string) error {
	queueURL, err := p.discoverQueueURL(ctx)
	if err != nil {
		return fmt.Errorf("fetching queue url, %w", err)
	}
	if _, err = p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: receiptHandle,
	}); err != nil {
		return fmt.Errorf("deleting messages from sqs queue, %w", err)
	}
	return nil
}

// EnsureQueue creates the queue when it does not exist yet. Safe to call on
// every setup run.
func (p *DefaultProvider) EnsureQueue(ctx context.Context) error {
	if _, err := p.client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(p.queueName),
	}); err != nil && !errors.IsQueueExists(err) {
		return fmt.Errorf("creating sqs queue %s, %w", p.queueName, err)
	}
	return nil
}

func (p *DefaultProvider) discoverQueueURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queueURL != "" {
		return p.queueURL, nil
	}
	ret, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(p.queueName),
	})
	if err != nil {
		return "", err
	}
	p.queueURL = aws.ToString(ret.QueueUrl)
	return p.queueURL, nil
}
