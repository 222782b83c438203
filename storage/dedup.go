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

// DedupStorage guards the one-vote-per-voter-per-message rule. RecordVote is
// an atomic insert-if-absent: when two concurrent batches race on the same
// (message, identity) pair, exactly one caller gets true.
type DedupStorage interface {
	HasVoted(ctx context.Context, messageID, identityKey string) (bool, error)
	RecordVote(ctx context.Context, messageID, identityKey string) (bool, error)
}

type DynamoDedupStorage struct {
	Client    *dynamodb.Client
	TableName string
}

func (s *DynamoDedupStorage) HasVoted(ctx context.Context, messageID, identityKey string) (bool, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"PK": messageID, "SK": identityKey})
	if err != nil {
		logging.Log.Errorf("DEDUP: failed to marshal key: %v", err)
		return false, err
	}

	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.TableName,
		Key:       key,
	})
	if err != nil {
		logging.Log.Errorf("DEDUP: GetItem failed for message %s: %v", messageID, err)
		return false, err
	}
	return out.Item != nil, nil
}

func (s *DynamoDedupStorage) RecordVote(ctx context.Context, messageID, identityKey string) (bool, error) {
	record := &VoteDedupRecord{
		MessageID:   messageID,
		IdentityKey: identityKey,
		CreatedAt:   time.Now().UTC(),
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		logging.Log.Errorf("DEDUP: failed to marshal record: %v", err)
		return false, err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		logging.Log.Errorf("DEDUP: failed to record vote for message %s: %v", messageID, err)
		return false, err
	}
	return true, nil
}
