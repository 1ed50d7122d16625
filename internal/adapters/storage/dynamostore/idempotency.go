package dynamostore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// IdempotencyStore reserves keys with a conditional put. An expired record
// may be overwritten; DynamoDB TTL removes stale items eventually.
type IdempotencyStore struct {
	api   API
	table string
	clock ports.Clock
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store over table.
func NewIdempotencyStore(api API, table string, clock ports.Clock) *IdempotencyStore {
	if table == "" {
		table = DefaultIdempotencyTable
	}

	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &IdempotencyStore{api: api, table: table, clock: clock}
}

// Reserve writes rec unless an unexpired record holds the key.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec domain.IdempotencyRecord) (*domain.IdempotencyRecord, bool, error) {
	item, err := attributevalue.MarshalMap(toIdempotencyItem(rec))
	if err != nil {
		return nil, false, fmt.Errorf("marshalling idempotency record: %w", err)
	}

	now := strconv.FormatInt(s.clock.Now().UnixMilli(), 10)

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                           aws.String(s.table),
		Item:                                item,
		ConditionExpression:                 aws.String("attribute_not_exists(#pk) OR #expires <= :now"),
		ExpressionAttributeNames:            map[string]string{"#pk": "pk", "#expires": "expires_at"},
		ExpressionAttributeValues:           map[string]types.AttributeValue{":now": &types.AttributeValueMemberN{Value: now}},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return &rec, true, nil
	}

	cfe, ok := conditionFailed(err)
	if !ok {
		return nil, false, mapError(err, "idempotency key", rec.Key)
	}

	if len(cfe.Item) == 0 {
		return nil, false, domain.NewConflictError("idempotency key", rec.Key, "reservation contended")
	}

	var existing idempotencyItem
	if err := attributevalue.UnmarshalMap(cfe.Item, &existing); err != nil {
		return nil, false, fmt.Errorf("unmarshalling idempotency record: %w", err)
	}

	out := existing.toDomain()

	return &out, false, nil
}

// Release deletes the reservation.
func (s *IdempotencyStore) Release(ctx context.Context, customerID, key string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: idempotencyPK(customerID, key)},
		},
	})
	if err != nil {
		return mapError(err, "idempotency key", key)
	}

	return nil
}
