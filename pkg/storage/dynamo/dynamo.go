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

// Package dynamo implements the storage port on DynamoDB. Every table is
// keyed (PartitionKey, RowKey) and written with unconditional PutItem, which
// gives the last-writer-wins semantics the control plane is designed around.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/multierr"

	"github.com/mailraid/mailraid/pkg/apis"
	"github.com/mailraid/mailraid/pkg/awsapi"
	"github.com/mailraid/mailraid/pkg/errors"
	"github.com/mailraid/mailraid/pkg/storage"
)

const (
	tableTeams        = "Teams"
	tableUsers        = "Users"
	tableScenarios    = "Scenarios"
	tableJobs         = "Jobs"
	tableLeaderboards = "Leaderboards"

	attrPartitionKey = "PartitionKey"
	attrRowKey       = "RowKey"
)

// Store implements storage.Store on DynamoDB. A table prefix isolates
// parallel deployments (phases, staging) in a single account.
type Store struct {
	client      awsapi.DynamoDBAPI
	tablePrefix string
}

var _ storage.Store = (*Store)(nil)

func NewStore(client awsapi.DynamoDBAPI, tablePrefix string) *Store {
	return &Store{client: client, tablePrefix: tablePrefix}
}

func (s *Store) table(name string) string {
	return s.tablePrefix + name
}

// Setup creates the five entity tables when they do not exist. Idempotent.
func (s *Store) Setup(ctx context.Context) error {
	var err error
	for _, name := range []string{tableTeams, tableUsers, tableScenarios, tableJobs, tableLeaderboards} {
		err = multierr.Append(err, s.ensureTable(ctx, s.table(name)))
	}
	return err
}

func (s *Store) ensureTable(ctx context.Context, tableName string) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}); err == nil {
		return nil
	} else if !errors.IsNotFound(err) {
		return fmt.Errorf("describing table %s, %w", tableName, err)
	}
	if _, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []dynamotypes.AttributeDefinition{
			{AttributeName: aws.String(attrPartitionKey), AttributeType: dynamotypes.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrRowKey), AttributeType: dynamotypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamotypes.KeySchemaElement{
			{AttributeName: aws.String(attrPartitionKey), KeyType: dynamotypes.KeyTypeHash},
			{AttributeName: aws.String(attrRowKey), KeyType: dynamotypes.KeyTypeRange},
		},
		BillingMode: dynamotypes.BillingModePayPerRequest,
	}); err != nil {
		return fmt.Errorf("creating table %s, %w", tableName, err)
	}
	return nil
}

// putItem marshals the record and writes it unconditionally.
func (s *Store) putItem(ctx context.Context, tableName string, record any) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling item, %w", err)
	}
	if _, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table(tableName)),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("putting item, %w", err)
	}
	return nil
}

// getItem loads a single row into out; found is false when the row is absent.
func (s *Store) getItem(ctx context.Context, tableName, partitionKey, rowKey string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table(tableName)),
		Key: map[string]dynamotypes.AttributeValue{
			attrPartitionKey: &dynamotypes.AttributeValueMemberS{Value: partitionKey},
			attrRowKey:       &dynamotypes.AttributeValueMemberS{Value: rowKey},
		},
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("getting item, %w", err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err = attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshaling item, %w", err)
	}
	return true, nil
}

// scanItems runs a full scan with an optional filter expression, following
// pagination to the end.
func scanItems[T any](ctx context.Context, s *Store, tableName string, filter *expression.ConditionBuilder) ([]T, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.table(tableName))}
	if filter != nil {
		expr, err := expression.NewBuilder().WithFilter(*filter).Build()
		if err != nil {
			return nil, fmt.Errorf("building filter expression, %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	var records []T
	for {
		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scanning table, %w", err)
		}
		page := make([]T, 0, len(result.Items))
		if err = attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling scan page, %w", err)
		}
		records = append(records, page...)
		if result.LastEvaluatedKey == nil {
			return records, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// queryPartition returns every row of one partition, following pagination.
func queryPartition[T any](ctx context.Context, s *Store, tableName, partitionKey string) ([]T, error) {
	keyCond := expression.Key(attrPartitionKey).Equal(expression.Value(partitionKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("building key condition, %w", err)
	}
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table(tableName)),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	var records []T
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("querying partition, %w", err)
		}
		page := make([]T, 0, len(result.Items))
		if err = attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling query page, %w", err)
		}
		records = append(records, page...)
		if result.LastEvaluatedKey == nil {
			return records, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func (s *Store) UpsertTeam(ctx context.Context, team *apis.Team) error {
	record, err := newTeamRecord(team)
	if err != nil {
		return fmt.Errorf("serializing team %s, %w", team.TeamID, err)
	}
	return s.putItem(ctx, tableTeams, record)
}

func (s *Store) GetTeam(ctx context.Context, teamID string) (*apis.Team, error) {
	record := teamRecord{}
	found, err := s.getItem(ctx, tableTeams, teamID, teamID, &record)
	if err != nil || !found {
		return nil, err
	}
	return record.toTeam()
}

func (s *Store) GetTeamByName(ctx context.Context, name string) (*apis.Team, error) {
	filter := expression.Name("Name").Equal(expression.Value(name)).
		And(expression.Name("Deleted").Equal(expression.Value(false)))
	records, err := scanItems[teamRecord](ctx, s, tableTeams, &filter)
	if err != nil {
		return nil, fmt.Errorf("scanning teams by name, %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0].toTeam()
}

func (s *Store) ListTeams(ctx context.Context) ([]*apis.Team, error) {
	records, err := scanItems[teamRecord](ctx, s, tableTeams, nil)
	if err != nil {
		return nil, fmt.Errorf("listing teams, %w", err)
	}
	teams := make([]*apis.Team, 0, len(records))
	for _, record := range records {
		team, err := record.toTeam()
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (s *Store) UpsertUser(ctx context.Context, user *apis.User) error {
	return s.putItem(ctx, tableUsers, newUserRecord(user))
}

func (s *Store) GetUser(ctx context.Context, login string) (*apis.User, error) {
	record := userRecord{}
	found, err := s.getItem(ctx, tableUsers, login, login, &record)
	if err != nil || !found {
		return nil, err
	}
	return record.toUser(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*apis.User, error) {
	records, err := scanItems[userRecord](ctx, s, tableUsers, nil)
	if err != nil {
		return nil, fmt.Errorf("listing users, %w", err)
	}
	users := make([]*apis.User, 0, len(records))
	for _, record := range records {
		users = append(users, record.toUser())
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, user *apis.User) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table(tableUsers)),
		Key: map[string]dynamotypes.AttributeValue{
			attrPartitionKey: &dynamotypes.AttributeValueMemberS{Value: user.PartitionKey()},
			attrRowKey:       &dynamotypes.AttributeValueMemberS{Value: user.RowKey()},
		},
	}); err != nil {
		return fmt.Errorf("deleting user %s, %w", user.Login, err)
	}
	return nil
}

func (s *Store) UpsertScenario(ctx context.Context, scenario *apis.Scenario) error {
	record, err := newScenarioRecord(scenario)
	if err != nil {
		return fmt.Errorf("serializing scenario %s, %w", scenario.ScenarioID, err)
	}
	return s.putItem(ctx, tableScenarios, record)
}

func (s *Store) GetScenario(ctx context.Context, scenarioID string) (*apis.Scenario, error) {
	record := scenarioRecord{}
	found, err := s.getItem(ctx, tableScenarios, scenarioID, scenarioID, &record)
	if err != nil || !found {
		return nil, err
	}
	return record.toScenario()
}

func (s *Store) ListScenarios(ctx context.Context, phase int) ([]*apis.Scenario, error) {
	filter := expression.Name("Phase").Equal(expression.Value(phase))
	records, err := scanItems[scenarioRecord](ctx, s, tableScenarios, &filter)
	if err != nil {
		return nil, fmt.Errorf("listing scenarios, %w", err)
	}
	scenarios := make([]*apis.Scenario, 0, len(records))
	for _, record := range records {
		scenario, err := record.toScenario()
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

func (s *Store) UpsertJob(ctx context.Context, job *apis.JobRecord) error {
	record, err := newJobRecord(job)
	if err != nil {
		return fmt.Errorf("serializing job %s, %w", job.JobID, err)
	}
	return s.putItem(ctx, tableJobs, record)
}

func (s *Store) GetJob(ctx context.Context, teamID, jobID string) (*apis.JobRecord, error) {
	record := jobRecord{}
	found, err := s.getItem(ctx, tableJobs, teamID, jobID, &record)
	if err != nil || !found {
		return nil, err
	}
	return record.toJob()
}

func (s *Store) ListJobs(ctx context.Context, teamID string) ([]*apis.JobRecord, error) {
	records, err := queryPartition[jobRecord](ctx, s, tableJobs, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing jobs for team %s, %w", teamID, err)
	}
	jobs := make([]*apis.JobRecord, 0, len(records))
	for _, record := range records {
		job, err := record.toJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Store) UpsertLeaderboard(ctx context.Context, leaderboard *apis.Leaderboard) error {
	record, err := newLeaderboardRecord(leaderboard)
	if err != nil {
		return fmt.Errorf("serializing leaderboard, %w", err)
	}
	return s.putItem(ctx, tableLeaderboards, record)
}

func (s *Store) GetLeaderboard(ctx context.Context, phase int) (*apis.Leaderboard, error) {
	record := leaderboardRecord{}
	found, err := s.getItem(ctx, tableLeaderboards, apis.LeaderboardPartition, apis.LeaderboardRowKey(phase), &record)
	if err != nil || !found {
		return nil, err
	}
	return record.toLeaderboard(phase)
}
