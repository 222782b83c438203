package storage

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hyepartners-gmail/message-testing-api/logging"
)

type VoteStorage interface {
	Create(ctx context.Context, vote *Vote) error
	GetByMessage(ctx context.Context, messageID string) ([]*Vote, error)
}

type DynamoVoteStorage struct {
	Client    *dynamodb.Client
	TableName string
}

// Create writes the ballot. Votes are immutable, so a second write for the
// same (message, identity) pair is refused by the condition expression.
func (s *DynamoVoteStorage) Create(ctx context.Context, vote *Vote) error {
	item, err := attributevalue.MarshalMap(vote)
	if err != nil {
		logging.Log.Errorf("VOTE: failed to marshal vote: %v", err)
		return err
	}
	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			logging.Log.Warnf("VOTE: vote for message %s by this identity already exists", vote.MessageID)
			return ErrItemWithIDAlreadyExists
		}
		logging.Log.Errorf("VOTE: failed to create vote: %v", err)
		return err
	}
	return nil
}

func (s *DynamoVoteStorage) GetByMessage(ctx context.Context, messageID string) ([]*Vote, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.TableName,
		KeyConditionExpression: aws.String("PK = :messageId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":messageId": &types.AttributeValueMemberS{Value: messageID},
		},
	}

	output, err := s.Client.Query(ctx, input)
	if err != nil {
		logging.Log.Errorf("VOTE: failed to query votes for message %s: %v", messageID, err)
		return nil, err
	}

	var votes []*Vote
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &votes); err != nil {
		logging.Log.Errorf("VOTE: failed to unmarshal votes for message %s: %v", messageID, err)
		return nil, err
	}
	return votes, nil
}
