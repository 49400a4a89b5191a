package gate

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient is the subset of the DynamoDB API the gate needs
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type counterItem struct {
	ID           string `dynamodbav:"id"`
	LastFetchUTC uint32 `dynamodbav:"lastFetchUtc"`
}

// DynamoStore keeps the last fetch time as a single item in its own table.
type DynamoStore struct {
	client    DynamoDBClient
	tableName string
	id        string
}

func NewDynamoStore(client DynamoDBClient, tableName, id string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		id:        id,
	}
}

func (s *DynamoStore) GetLastFetch(ctx context.Context) (int64, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: s.id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("getting last fetch from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return 0, nil
	}

	var item counterItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return 0, fmt.Errorf("unmarshaling last fetch item: %w", err)
	}
	return int64(item.LastFetchUTC), nil
}

func (s *DynamoStore) PutLastFetch(ctx context.Context, nowUTC int64) error {
	av, err := attributevalue.MarshalMap(counterItem{
		ID:           s.id,
		LastFetchUTC: uint32(nowUTC),
	})
	if err != nil {
		return fmt.Errorf("marshaling last fetch item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("putting last fetch in DynamoDB: %w", err)
	}
	return nil
}
