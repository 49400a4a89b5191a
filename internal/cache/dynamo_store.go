package cache

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/rs/zerolog/log"
)

// DynamoDBClient defines the DynamoDB operations the stores need
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoExtremaItem struct {
	CacheKey     string           `dynamodbav:"cacheKey"`
	FetchedAtUTC uint32           `dynamodbav:"fetchedAtUtc"`
	Extremes     []ExtremumRecord `dynamodbav:"extremes"`
}

// DynamoStore keeps the extrema cache as one DynamoDB item.
type DynamoStore struct {
	client    DynamoDBClient
	tableName string
	cacheKey  string
}

func NewDynamoStore(client DynamoDBClient, tableName, cacheKey string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		cacheKey:  cacheKey,
	}
}

func (s *DynamoStore) Save(ctx context.Context, set *models.ExtremaSet) error {
	record := NewExtremaRecord(set)
	item, err := attributevalue.MarshalMap(dynamoExtremaItem{
		CacheKey:     s.cacheKey,
		FetchedAtUTC: record.FetchedAtUTC,
		Extremes:     record.Extremes,
	})
	if err != nil {
		return fmt.Errorf("marshaling extrema record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("putting extrema in DynamoDB: %w", err)
	}

	log.Debug().
		Str("cache_key", s.cacheKey).
		Int("extremes", len(record.Extremes)).
		Msg("Saved extrema to DynamoDB")
	return nil
}

func (s *DynamoStore) Load(ctx context.Context) (*models.ExtremaSet, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"cacheKey": &types.AttributeValueMemberS{Value: s.cacheKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting extrema from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var item dynamoExtremaItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, NewCorruptError("unmarshaling item", err)
	}

	record := ExtremaRecord{
		FetchedAtUTC: item.FetchedAtUTC,
		Extremes:     item.Extremes,
	}
	return record.ToSet()
}
