package dynamostore

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// QuoteRepository stores one item per quote with its line items embedded.
type QuoteRepository struct {
	api   API
	table string
}

var _ ports.QuoteRepository = (*QuoteRepository)(nil)

// NewQuoteRepository creates a repository over table.
func NewQuoteRepository(api API, table string) *QuoteRepository {
	if table == "" {
		table = DefaultQuotesTable
	}

	return &QuoteRepository{api: api, table: table}
}

func quoteKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

// Create writes the quote unless the id is already taken.
func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	item, err := attributevalue.MarshalMap(toQuoteItem(quote))
	if err != nil {
		return fmt.Errorf("marshalling quote %s: %w", quote.ID, err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if err != nil {
		if _, ok := conditionFailed(err); ok {
			return domain.NewConflictError("quote", quote.ID, "already exists")
		}

		return mapError(err, "quote", quote.ID)
	}

	return nil
}

// Get reads the quote with strong consistency.
func (r *QuoteRepository) Get(ctx context.Context, id string) (*domain.Quote, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            quoteKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError(err, "quote", id)
	}

	if len(out.Item) == 0 {
		return nil, domain.NewNotFoundError("quote", id)
	}

	return decodeQuote(out.Item)
}

func decodeQuote(item map[string]types.AttributeValue) (*domain.Quote, error) {
	var it quoteItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, fmt.Errorf("unmarshalling quote: %w", err)
	}

	return it.toDomain()
}

// timestampAttribute names the attribute stamped when a quote enters status.
func timestampAttribute(status domain.QuoteStatus) string {
	switch status {
	case domain.StatusIssued:
		return "issued_at"
	case domain.StatusAccepted:
		return "accepted_at"
	case domain.StatusExpired:
		return "expired_at"
	case domain.StatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}

// UpdateStatus performs the compare-and-set with a condition on the stored
// status. The old image returned on failure tells a lost race apart from a
// missing quote.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Quote, error) {
	at := &types.AttributeValueMemberS{Value: formatTime(change.At)}

	update := "SET #status = :to, #version = #version + :one, #updated = :at"
	names := map[string]string{
		"#status":  "status",
		"#version": "version",
		"#updated": "updated_at",
	}
	values := map[string]types.AttributeValue{
		":from": &types.AttributeValueMemberS{Value: string(change.From)},
		":to":   &types.AttributeValueMemberS{Value: string(change.To)},
		":one":  &types.AttributeValueMemberN{Value: "1"},
		":at":   at,
	}

	if attr := timestampAttribute(change.To); attr != "" {
		update += ", #stamp = :at"
		names["#stamp"] = attr
	}

	if change.To == domain.StatusIssued && change.ValidUntil != nil {
		update += ", #valid = :valid"
		names["#valid"] = "valid_until"
		values[":valid"] = &types.AttributeValueMemberS{Value: formatTime(*change.ValidUntil)}
	}

	out, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.table),
		Key:                                 quoteKey(change.QuoteID),
		UpdateExpression:                    aws.String(update),
		ConditionExpression:                 aws.String("#status = :from"),
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		cfe, ok := conditionFailed(err)
		if !ok {
			return nil, mapError(err, "quote", change.QuoteID)
		}

		// No old image means the condition failed on a missing item.
		if len(cfe.Item) == 0 {
			return nil, domain.NewNotFoundError("quote", change.QuoteID)
		}

		var old quoteItem
		if err := attributevalue.UnmarshalMap(cfe.Item, &old); err != nil {
			return nil, fmt.Errorf("unmarshalling quote %s: %w", change.QuoteID, err)
		}

		return nil, &domain.ConcurrentModificationError{
			QuoteID:  change.QuoteID,
			Expected: change.From,
			Actual:   domain.QuoteStatus(old.Status),
		}
	}

	return decodeQuote(out.Attributes)
}

// List queries the customer index when the filter names a customer and
// scans otherwise. Remaining filter fields are applied after decoding.
func (r *QuoteRepository) List(ctx context.Context, filter ports.QuoteFilter) (*ports.QuotePage, error) {
	var (
		items []map[string]types.AttributeValue
		err   error
	)

	if filter.CustomerID != "" {
		items, err = r.queryCustomer(ctx, filter.CustomerID)
	} else {
		items, err = r.scan(ctx)
	}

	if err != nil {
		return nil, mapError(err, "quote", "list")
	}

	quotes := make([]*domain.Quote, 0, len(items))

	for _, item := range items {
		q, err := decodeQuote(item)
		if err != nil {
			return nil, err
		}

		if filter.Matches(q) {
			quotes = append(quotes, q)
		}
	}

	sort.Slice(quotes, func(i, j int) bool {
		a, b := quotes[i], quotes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}

		return a.ID > b.ID
	})

	page := &ports.QuotePage{Quotes: quotes}

	if filter.Limit > 0 && len(quotes) > filter.Limit {
		page.Quotes = quotes[:filter.Limit]
		last := page.Quotes[filter.Limit-1]
		page.Next = &ports.QuoteCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return page, nil
}

func (r *QuoteRepository) queryCustomer(ctx context.Context, customerID string) ([]map[string]types.AttributeValue, error) {
	paginator := dynamodb.NewQueryPaginator(r.api, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(customerIndex),
		KeyConditionExpression:    aws.String("#customer = :customer"),
		ExpressionAttributeNames:  map[string]string{"#customer": "customer_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":customer": &types.AttributeValueMemberS{Value: customerID}},
		ScanIndexForward:          aws.Bool(false),
	})

	var items []map[string]types.AttributeValue

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		items = append(items, out.Items...)
	}

	return items, nil
}

func (r *QuoteRepository) scan(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	paginator := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{TableName: aws.String(r.table)})

	var items []map[string]types.AttributeValue

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		items = append(items, out.Items...)
	}

	return items, nil
}
