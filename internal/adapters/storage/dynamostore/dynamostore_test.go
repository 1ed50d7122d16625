package dynamostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)

	return out, args.Error(1)
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)

	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)

	return out, args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)

	return out, args.Error(1)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)

	return out, args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)

	return out, args.Error(1)
}

func (m *mockAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)

	return out, args.Error(1)
}

var created = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func sampleQuote() *domain.Quote {
	return &domain.Quote{
		ID:          "Q-1A2B3C4D",
		CustomerID:  "CUST-1",
		Mode:        domain.ModeSea,
		Service:     domain.ServiceFCL,
		Origin:      "CNSHA",
		Destination: "USLAX",
		Shipment: domain.Shipment{
			Containers:   []domain.ContainerSpec{{Type: domain.Container40HC, Count: 2}},
			WeightKg:     decimal.RequireFromString("12000.5"),
			Accessorials: []string{"FUEL"},
		},
		Currency: "USD",
		LineItems: []domain.LineItem{
			{
				Sequence: 1, Type: domain.LineBase, Code: "FREIGHT_40HC", Description: "Ocean freight 40HC",
				UnitPrice: decimal.RequireFromString("1000"), Quantity: decimal.RequireFromString("2"),
				TotalPrice: decimal.RequireFromString("2000.00"), Currency: "USD",
			},
			{
				Sequence: 2, Type: domain.LineSurcharge, Code: "FUEL", Description: "Fuel surcharge",
				UnitPrice: decimal.RequireFromString("2000.00"), Quantity: decimal.RequireFromString("0.1"),
				TotalPrice: decimal.RequireFromString("200.00"), Currency: "USD",
			},
		},
		BaseAmount:  decimal.RequireFromString("2000.00"),
		TotalAmount: decimal.RequireFromString("2200.00"),
		Status:      domain.StatusDraft,
		Version:     1,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func marshalQuote(t *testing.T, q *domain.Quote) map[string]types.AttributeValue {
	t.Helper()

	item, err := attributevalue.MarshalMap(toQuoteItem(q))
	require.NoError(t, err)

	return item
}

func TestQuoteItemRoundTrip(t *testing.T) {
	q := sampleQuote()
	validUntil := created.Add(48 * time.Hour)
	q.IssuedAt = &created
	q.ValidUntil = &validUntil
	q.SourceCurrency = "EUR"
	q.ExchangeRate = decimal.RequireFromString("1.0850")

	got, err := toQuoteItem(q).toDomain()
	require.NoError(t, err)

	assert.True(t, q.TotalAmount.Equal(got.TotalAmount))
	assert.True(t, q.ExchangeRate.Equal(got.ExchangeRate))
	assert.Equal(t, q.Shipment.Containers, got.Shipment.Containers)
	assert.Equal(t, "FUEL", got.LineItems[1].Code)
	assert.True(t, got.ValidUntil.Equal(validUntil))
	assert.Nil(t, got.AcceptedAt)
}

func TestQuoteItemToDomain_BadAmount(t *testing.T) {
	it := toQuoteItem(sampleQuote())
	it.TotalAmount = "twelve"

	_, err := it.toDomain()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_amount")
}

func TestQuoteRepository_Create(t *testing.T) {
	t.Run("writes conditionally", func(t *testing.T) {
		api := &mockAPI{}
		api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return *in.TableName == "quotes" && *in.ConditionExpression == "attribute_not_exists(#id)"
		})).Return(&dynamodb.PutItemOutput{}, nil)

		err := NewQuoteRepository(api, "").Create(context.Background(), sampleQuote())
		require.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		api := &mockAPI{}
		api.On("PutItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{})

		err := NewQuoteRepository(api, "").Create(context.Background(), sampleQuote())
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("other failures are unavailable", func(t *testing.T) {
		api := &mockAPI{}
		api.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		err := NewQuoteRepository(api, "").Create(context.Background(), sampleQuote())
		assert.True(t, domain.IsUnavailable(err))
	})
}

func TestQuoteRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return *in.ConsistentRead
		})).Return(&dynamodb.GetItemOutput{Item: marshalQuote(t, sampleQuote())}, nil)

		q, err := NewQuoteRepository(api, "").Get(context.Background(), "Q-1A2B3C4D")
		require.NoError(t, err)
		assert.Equal(t, "CUST-1", q.CustomerID)
		assert.Len(t, q.LineItems, 2)
	})

	t.Run("missing", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		_, err := NewQuoteRepository(api, "").Get(context.Background(), "Q-NOPE")
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("context errors pass through", func(t *testing.T) {
		api := &mockAPI{}
		api.On("GetItem", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

		_, err := NewQuoteRepository(api, "").Get(context.Background(), "Q-1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestQuoteRepository_UpdateStatus(t *testing.T) {
	at := created.Add(time.Hour)
	validUntil := at.Add(48 * time.Hour)
	change := domain.StatusChange{
		QuoteID:    "Q-1A2B3C4D",
		From:       domain.StatusDraft,
		To:         domain.StatusIssued,
		At:         at,
		ValidUntil: &validUntil,
	}

	t.Run("applies", func(t *testing.T) {
		issued := sampleQuote()
		issued.Apply(change)

		api := &mockAPI{}
		api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return in.ExpressionAttributeNames["#stamp"] == "issued_at" &&
				in.ExpressionAttributeNames["#valid"] == "valid_until" &&
				*in.ConditionExpression == "#status = :from"
		})).Return(&dynamodb.UpdateItemOutput{Attributes: marshalQuote(t, issued)}, nil)

		q, err := NewQuoteRepository(api, "").UpdateStatus(context.Background(), change)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusIssued, q.Status)
		assert.Equal(t, 2, q.Version)
		assert.True(t, q.ValidUntil.Equal(validUntil))
	})

	t.Run("lost race reports the stored status", func(t *testing.T) {
		current := sampleQuote()
		current.Status = domain.StatusCancelled

		api := &mockAPI{}
		api.On("UpdateItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Item: marshalQuote(t, current)})

		_, err := NewQuoteRepository(api, "").UpdateStatus(context.Background(), change)

		var cme *domain.ConcurrentModificationError
		require.ErrorAs(t, err, &cme)
		assert.Equal(t, domain.StatusCancelled, cme.Actual)
		assert.Equal(t, domain.StatusDraft, cme.Expected)
	})

	t.Run("missing quote", func(t *testing.T) {
		api := &mockAPI{}
		api.On("UpdateItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{})

		_, err := NewQuoteRepository(api, "").UpdateStatus(context.Background(), change)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestQuoteRepository_List(t *testing.T) {
	older := sampleQuote()
	newer := sampleQuote()
	newer.ID = "Q-2B3C4D5E"
	newer.CreatedAt = created.Add(time.Minute)
	newest := sampleQuote()
	newest.ID = "Q-3C4D5E6F"
	newest.CreatedAt = created.Add(2 * time.Minute)
	newest.Status = domain.StatusCancelled

	t.Run("customer listings use the index", func(t *testing.T) {
		api := &mockAPI{}
		api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return *in.IndexName == customerIndex && !*in.ScanIndexForward
		})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
			marshalQuote(t, newest), marshalQuote(t, newer), marshalQuote(t, older),
		}}, nil)

		page, err := NewQuoteRepository(api, "").List(context.Background(), ports.QuoteFilter{
			CustomerID: "CUST-1",
			Status:     domain.StatusDraft,
			Limit:      1,
		})
		require.NoError(t, err)
		require.Len(t, page.Quotes, 1)
		assert.Equal(t, newer.ID, page.Quotes[0].ID)
		require.NotNil(t, page.Next)
		assert.Equal(t, newer.ID, page.Next.ID)
	})

	t.Run("scans without a customer", func(t *testing.T) {
		api := &mockAPI{}
		api.On("Scan", mock.Anything, mock.Anything).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{
			marshalQuote(t, older), marshalQuote(t, newest),
		}}, nil)

		page, err := NewQuoteRepository(api, "").List(context.Background(), ports.QuoteFilter{})
		require.NoError(t, err)
		require.Len(t, page.Quotes, 2)
		assert.Equal(t, newest.ID, page.Quotes[0].ID)
		assert.Nil(t, page.Next)
	})
}

func TestIdempotencyStore_Reserve(t *testing.T) {
	now := created
	clock := ports.ClockFunc(func() time.Time { return now })
	rec := domain.IdempotencyRecord{
		CustomerID:  "CUST-1",
		Key:         "key-1",
		QuoteID:     "Q-1A2B3C4D",
		RequestHash: "abc",
		CreatedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}

	t.Run("new key", func(t *testing.T) {
		api := &mockAPI{}
		api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			pk, ok := in.Item["pk"].(*types.AttributeValueMemberS)
			return ok && pk.Value == "CUST-1#key-1"
		})).Return(&dynamodb.PutItemOutput{}, nil)

		got, fresh, err := NewIdempotencyStore(api, "", clock).Reserve(context.Background(), rec)
		require.NoError(t, err)
		assert.True(t, fresh)
		assert.Equal(t, rec.QuoteID, got.QuoteID)
	})

	t.Run("existing key returns the stored record", func(t *testing.T) {
		existing := rec
		existing.QuoteID = "Q-FFFFFFFF"

		item, err := attributevalue.MarshalMap(toIdempotencyItem(existing))
		require.NoError(t, err)

		api := &mockAPI{}
		api.On("PutItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Item: item})

		got, fresh, err := NewIdempotencyStore(api, "", clock).Reserve(context.Background(), rec)
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Equal(t, "Q-FFFFFFFF", got.QuoteID)
		assert.True(t, got.ExpiresAt.Equal(rec.ExpiresAt))
	})

	t.Run("store failure", func(t *testing.T) {
		api := &mockAPI{}
		api.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("network"))

		_, _, err := NewIdempotencyStore(api, "", clock).Reserve(context.Background(), rec)
		assert.True(t, domain.IsUnavailable(err))
	})
}

func TestIdempotencyStore_Release(t *testing.T) {
	api := &mockAPI{}
	api.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return *in.TableName == DefaultIdempotencyTable
	})).Return(&dynamodb.DeleteItemOutput{}, nil)

	err := NewIdempotencyStore(api, "", nil).Release(context.Background(), "CUST-1", "key-1")
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestHealthChecker(t *testing.T) {
	api := &mockAPI{}
	api.On("DescribeTable", mock.Anything, mock.Anything).Return(&dynamodb.DescribeTableOutput{}, nil)

	h := NewHealthChecker(api, "")
	assert.Equal(t, "dynamodb", h.Name())
	assert.NoError(t, h.Check(context.Background()))
}
