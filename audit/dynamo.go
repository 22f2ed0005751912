package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/ficoreafrica/ficore/internal/shard"
)

// DynamoAPI is the subset of *dynamodb.Client the sink uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	dynamodb.QueryAPIClient
}

// DynamoConfig configures a DynamoSink.
type DynamoConfig struct {
	// Table is the DynamoDB table name. It has a string partition key "pk"
	// and a string sort key "sk".
	Table string

	// NumShards is the number of partitions per tool and day.
	// Values <= 1 use a single partition.
	NumShards int

	// TTL, when positive, sets an "expires_at" epoch attribute so DynamoDB
	// removes entries after that long.
	TTL time.Duration
}

// DynamoSink writes entries to a DynamoDB table keyed by tool, day and shard.
type DynamoSink struct {
	client DynamoAPI
	config DynamoConfig
	newID  func() string
}

// NewDynamoSink creates a sink on client.
func NewDynamoSink(client DynamoAPI, config DynamoConfig) *DynamoSink {
	if config.NumShards < 1 {
		config.NumShards = 1
	}
	return &DynamoSink{client: client, config: config, newID: uuid.NewString}
}

// Write puts e under pk "<tool>#<day>#<shard>" and sk "<timestamp>#<uuid>".
func (s *DynamoSink) Write(ctx context.Context, e Entry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal tool usage: %w", err)
	}
	item["pk"] = &types.AttributeValueMemberS{Value: shard.AuditPK(e.ToolName, e.Timestamp, e.actor(), s.config.NumShards)}
	item["sk"] = &types.AttributeValueMemberS{Value: shard.AuditSK(e.Timestamp, s.newID())}
	if s.config.TTL > 0 {
		item["expires_at"] = &types.AttributeValueMemberN{
			Value: fmt.Sprintf("%d", e.Timestamp.Add(s.config.TTL).Unix()),
		}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put tool usage: %w", err)
	}
	return nil
}

// Entries returns every entry recorded for tool on the UTC day of day,
// querying each shard in turn. Entries within a shard are ordered by time.
func (s *DynamoSink) Entries(ctx context.Context, tool string, day time.Time) ([]Entry, error) {
	var out []Entry
	for _, pk := range shard.Shards(tool, day, s.config.NumShards) {
		paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
			TableName:              aws.String(s.config.Table),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
			},
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("query %s: %w", pk, err)
			}
			var entries []Entry
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &entries); err != nil {
				return nil, fmt.Errorf("unmarshal tool usage: %w", err)
			}
			out = append(out, entries...)
		}
	}
	return out, nil
}
