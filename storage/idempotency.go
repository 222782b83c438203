package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hyepartners-gmail/message-testing-api/logging"
)

// IdempotencyStorage records processed batch keys. PutIfAbsent is the only
// write path: the conditional insert doubles as the check, so two concurrent
// requests carrying the same fresh key cannot both proceed.
type IdempotencyStorage interface {
	PutIfAbsent(ctx context.Context, key string) (bool, error)
}

type DynamoIdempotencyStorage struct {
	Client    *dynamodb.Client
	TableName string
	TTL       time.Duration
}

func (s *DynamoIdempotencyStorage) PutIfAbsent(ctx context.Context, key string) (bool, error) {
	now := time.Now().UTC()
	record := &IdempotencyRecord{
		Key:         key,
		ProcessedAt: now,
		ExpiresAt:   now.Add(s.TTL).Unix(),
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		logging.Log.Errorf("IDEMPOTENCY: failed to marshal record: %v", err)
		return false, err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		logging.Log.Errorf("IDEMPOTENCY: failed to record key: %v", err)
		return false, err
	}
	return true, nil
}
