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

type PairStorage interface {
	Get(ctx context.Context, id string) (*ABPair, error)
	GetAll(ctx context.Context) ([]*ABPair, error)
	Create(ctx context.Context, pair *ABPair) error
	Update(ctx context.Context, pair *ABPair) error
}

type DynamoPairStorage struct {
	Client    *dynamodb.Client
	TableName string
}

func (s *DynamoPairStorage) Get(ctx context.Context, id string) (*ABPair, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"PK": id})
	if err != nil {
		logging.Log.Errorf("PAIR: failed to marshal key for id %s: %v", id, err)
		return nil, err
	}

	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.TableName,
		Key:       key,
	})
	if err != nil {
		logging.Log.Errorf("PAIR: GetItem for id %s failed: %v", id, err)
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var pair ABPair
	if err := attributevalue.UnmarshalMap(out.Item, &pair); err != nil {
		logging.Log.Errorf("PAIR: failed to unmarshal pair: %v", err)
		return nil, err
	}
	return &pair, nil
}

func (s *DynamoPairStorage) GetAll(ctx context.Context) ([]*ABPair, error) {
	out, err := s.Client.Scan(ctx, &dynamodb.ScanInput{
		TableName: &s.TableName,
	})
	if err != nil {
		logging.Log.Errorf("PAIR: scan failed: %v", err)
		return nil, err
	}

	var pairs []*ABPair
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &pairs); err != nil {
		logging.Log.Errorf("PAIR: failed to unmarshal list: %v", err)
		return nil, err
	}
	return pairs, nil
}

func (s *DynamoPairStorage) Create(ctx context.Context, pair *ABPair) error {
	item, err := attributevalue.MarshalMap(pair)
	if err != nil {
		logging.Log.Errorf("PAIR: failed to marshal pair: %v", err)
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
			logging.Log.Warnf("PAIR: pair with id %s already exists", pair.ID)
			return ErrItemWithIDAlreadyExists
		}
		logging.Log.Errorf("PAIR: failed to create pair: %v", err)
		return err
	}
	return nil
}

func (s *DynamoPairStorage) Update(ctx context.Context, pair *ABPair) error {
	item, err := attributevalue.MarshalMap(pair)
	if err != nil {
		logging.Log.Errorf("PAIR: failed to marshal pair: %v", err)
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		logging.Log.Errorf("PAIR: failed to update pair %s: %v", pair.ID, err)
		return err
	}
	return nil
}
