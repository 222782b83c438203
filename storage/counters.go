package storage

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hyepartners-gmail/message-testing-api/logging"
)

// CounterStorage holds the running aggregates. Increment must be atomic per
// key so concurrent batches cannot lose updates; DynamoDB ADD gives that
// natively and creates the counter on first touch.
type CounterStorage interface {
	Increment(ctx context.Context, key CounterKey, delta int64) (int64, error)
	Query(ctx context.Context, filter CounterFilter) ([]*AggregateCounter, error)
}

type DynamoCounterStorage struct {
	Client    *dynamodb.Client
	TableName string
}

func (s *DynamoCounterStorage) Increment(ctx context.Context, key CounterKey, delta int64) (int64, error) {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.TableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: key.MessageID},
			"SK": &types.AttributeValueMemberS{Value: key.SortKey()},
		},
		// SET keeps the slicing attributes readable by scans; ADD is the
		// atomic part.
		UpdateExpression: aws.String("SET #day = :day, Geo = :geo, Party = :party, Demo = :demo, VoteValue = :value ADD VoteCount :delta"),
		ExpressionAttributeNames: map[string]string{
			"#day": "Day",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":day":   &types.AttributeValueMemberS{Value: key.Day},
			":geo":   &types.AttributeValueMemberS{Value: key.Geo},
			":party": &types.AttributeValueMemberS{Value: key.Party},
			":demo":  &types.AttributeValueMemberS{Value: key.Demo},
			":value": &types.AttributeValueMemberS{Value: key.Value},
			":delta": &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	out, err := s.Client.UpdateItem(ctx, input)
	if err != nil {
		logging.Log.Errorf("COUNTER: increment failed for %s/%s: %v", key.MessageID, key.SortKey(), err)
		return 0, err
	}

	var counter AggregateCounter
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil {
		logging.Log.Errorf("COUNTER: failed to unmarshal increment result: %v", err)
		return 0, err
	}
	return counter.Count, nil
}

// Query reads counters matching the filter. With a message id it uses the
// partition key; otherwise it falls back to a filtered scan.
func (s *DynamoCounterStorage) Query(ctx context.Context, filter CounterFilter) ([]*AggregateCounter, error) {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	expr := buildCounterFilterExpression(filter, names, values)

	var items []map[string]types.AttributeValue
	if filter.MessageID != "" {
		values[":messageId"] = &types.AttributeValueMemberS{Value: filter.MessageID}
		input := &dynamodb.QueryInput{
			TableName:                 &s.TableName,
			KeyConditionExpression:    aws.String("PK = :messageId"),
			ExpressionAttributeValues: values,
		}
		if expr != "" {
			input.FilterExpression = aws.String(expr)
		}
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
		out, err := s.Client.Query(ctx, input)
		if err != nil {
			logging.Log.Errorf("COUNTER: query failed for message %s: %v", filter.MessageID, err)
			return nil, err
		}
		items = out.Items
	} else {
		input := &dynamodb.ScanInput{
			TableName: &s.TableName,
		}
		if expr != "" {
			input.FilterExpression = aws.String(expr)
			input.ExpressionAttributeValues = values
		}
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
		out, err := s.Client.Scan(ctx, input)
		if err != nil {
			logging.Log.Errorf("COUNTER: scan failed: %v", err)
			return nil, err
		}
		items = out.Items
	}

	var counters []*AggregateCounter
	if err := attributevalue.UnmarshalListOfMaps(items, &counters); err != nil {
		logging.Log.Errorf("COUNTER: failed to unmarshal counter list: %v", err)
		return nil, err
	}
	return counters, nil
}

func buildCounterFilterExpression(filter CounterFilter, names map[string]string, values map[string]types.AttributeValue) string {
	expr := ""
	and := func(clause string) {
		if expr != "" {
			expr += " AND "
		}
		expr += clause
	}

	if filter.Geo != "" {
		and("Geo = :geo")
		values[":geo"] = &types.AttributeValueMemberS{Value: filter.Geo}
	}
	if filter.Party != "" {
		and("Party = :party")
		values[":party"] = &types.AttributeValueMemberS{Value: filter.Party}
	}
	if filter.Demo != "" {
		and("Demo = :demo")
		values[":demo"] = &types.AttributeValueMemberS{Value: filter.Demo}
	}
	if filter.From != "" {
		and("#day >= :from")
		names["#day"] = "Day"
		values[":from"] = &types.AttributeValueMemberS{Value: filter.From}
	}
	if filter.To != "" {
		and("#day <= :to")
		names["#day"] = "Day"
		values[":to"] = &types.AttributeValueMemberS{Value: filter.To}
	}
	return expr
}
