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

type MessageStorage interface {
	Get(ctx context.Context, id string) (*Message, error)
	GetAll(ctx context.Context) ([]*Message, error)
	Create(ctx context.Context, message *Message) error
	Update(ctx context.Context, message *Message) error
}

type DynamoMessageStorage struct {
	Client    *dynamodb.Client
	TableName string
}

func (s *DynamoMessageStorage) Get(ctx context.Context, id string) (*Message, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"PK": id})
	if err != nil {
		logging.Log.Errorf("MESSAGE: failed to marshal key for id %s: %v", id, err)
		return nil, err
	}

	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.TableName,
		Key:       key,
	})
	if err != nil {
		logging.Log.Errorf("MESSAGE: GetItem for id %s failed: %v", id, err)
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var message Message
	if err := attributevalue.UnmarshalMap(out.Item, &message); err != nil {
		logging.Log.Errorf("MESSAGE: failed to unmarshal message: %v", err)
		return nil, err
	}
	return &message, nil
}

func (s *DynamoMessageStorage) GetAll(ctx context.Context) ([]*Message, error) {
	out, err := s.Client.Scan(ctx, &dynamodb.ScanInput{
		TableName: &s.TableName,
	})
	if err != nil {
		logging.Log.Errorf("MESSAGE: scan failed: %v", err)
		return nil, err
	}

	var messages []*Message
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &messages); err != nil {
		logging.Log.Errorf("MESSAGE: failed to unmarshal list: %v", err)
		return nil, err
	}
	return messages, nil
}

func (s *DynamoMessageStorage) Create(ctx context.Context, message *Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	message.UpdatedAt = message.CreatedAt

	item, err := attributevalue.MarshalMap(message)
	if err != nil {
		logging.Log.Errorf("MESSAGE: failed to marshal message: %v", err)
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cce *types.ConditionalCheckFailedException
		if errors.As(err, &cce) {
			logging.Log.Warnf("MESSAGE: message with id %s already exists", message.ID)
			return ErrItemWithIDAlreadyExists
		}
		logging.Log.Errorf("MESSAGE: failed to create message: %v", err)
		return err
	}
	return nil
}

func (s *DynamoMessageStorage) Update(ctx context.Context, message *Message) error {
	message.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(message)
	if err != nil {
		logging.Log.Errorf("MESSAGE: failed to marshal message: %v", err)
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		logging.Log.Errorf("MESSAGE: failed to update message %s: %v", message.ID, err)
		return err
	}
	return nil
}
