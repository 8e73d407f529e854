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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/mailraid/mailraid/pkg/auth"
	"github.com/mailraid/mailraid/pkg/controllers/deadletter"
	"github.com/mailraid/mailraid/pkg/controllers/leaderboard"
	"github.com/mailraid/mailraid/pkg/controllers/results"
	"github.com/mailraid/mailraid/pkg/logging"
	"github.com/mailraid/mailraid/pkg/metrics"
	"github.com/mailraid/mailraid/pkg/operator/options"
	"github.com/mailraid/mailraid/pkg/queues"
	"github.com/mailraid/mailraid/pkg/scoring"
	"github.com/mailraid/mailraid/pkg/storage/dynamo"
	"github.com/mailraid/mailraid/pkg/webapi"
)

func main() {
	_ = godotenv.Load()
	opts := options.New().MustParse()

	logger := logging.NewLogger(opts.Debug)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Fatalf("loading aws config, %s", err)
	}
	dynamoClient := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.DynamoDBEndpoint)
		}
	})
	sqsClient := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if opts.SQSEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.SQSEndpoint)
		}
	})

	store := dynamo.NewStore(dynamoClient, opts.TablePrefix)
	registry := queues.NewRegistry(sqsClient)
	clk := clock.RealClock{}

	var identity auth.IdentityProvider = auth.LocalProvider{}
	if opts.GithubClientID != "" {
		identity = auth.NewGithubProvider(opts.GithubClientID, opts.GithubClientSecret, opts.GithubRedirectURI)
	} else {
		logger.Warnf("no GitHub client configured, using the local identity provider")
	}

	server := webapi.NewServer(opts, store, registry, identity, clk, logger)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("serving api on :%d", opts.APIPort)
		return server.Start(ctx)
	})
	group.Go(func() error {
		logger.Infof("serving metrics on :%d", opts.MetricsPort)
		return serveMetrics(ctx, opts.MetricsPort)
	})
	group.Go(func() error {
		return results.NewController(store, registry.Get(queues.QueueResults), clk).Start(ctx)
	})
	group.Go(func() error {
		return deadletter.NewController(store, registry.Get(queues.QueueDeadLetter), clk).Start(ctx)
	})
	group.Go(func() error {
		return leaderboard.NewController(store, scoring.DefaultModel(), clk, opts.Phase, opts.LeaderboardInterval).Start(ctx)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatalf("running control plane, %s", err)
	}
}

func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	select {
	case <-ctx.Done():
		return server.Close()
	case err := <-errCh:
		return err
	}
}
