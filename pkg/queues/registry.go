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

package queues

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/mailraid/mailraid/pkg/awsapi"
)

// Registry hands out one Provider per queue name. Scenario workqueues are
// dynamic (the catalog names them), so providers are created on demand and
// cached for the life of the process.
type Registry struct {
	client awsapi.SQSAPI

	mu        sync.Mutex
	providers map[string]Provider
}

func NewRegistry(client awsapi.SQSAPI) *Registry {
	return &Registry{
		client:    client,
		providers: map[string]Provider{},
	}
}

// Get returns the provider for the named queue.
func (r *Registry) Get(queueName string) Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[queueName]; ok {
		return p
	}
	p := NewDefaultProvider(r.client, queueName)
	r.providers[queueName] = p
	return p
}

// Setup ensures the core queues plus any extra (catalog-discovered) queues
// exist. Idempotent.
func (r *Registry) Setup(ctx context.Context, extra ...string) error {
	var err error
	for _, name := range append([]string{QueueResults, QueueDispatch, QueueDeadLetter}, extra...) {
		provider, ok := r.Get(name).(*DefaultProvider)
		if !ok {
			continue
		}
		if e := provider.EnsureQueue(ctx); e != nil {
			err = multierr.Append(err, fmt.Errorf("ensuring queue %s, %w", name, e))
		}
	}
	return err
}
