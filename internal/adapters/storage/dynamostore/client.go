// Package dynamostore implements the quote and idempotency stores on Amazon
// DynamoDB.
//
// Table requirements:
//   - quotes: partition key id (S); global secondary index
//     customer_id-created_at (customer_id S, created_at S) for customer listings
//   - idempotency: partition key pk (S) holding "customer_id#key"; TTL on ttl
//
// Status changes use a ConditionExpression on the stored status, so a lost
// race surfaces as ConditionalCheckFailedException and is reported as
// *domain.ConcurrentModificationError.
package dynamostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// Default table names.
const (
	DefaultQuotesTable      = "quotes"
	DefaultIdempotencyTable = "quote_idempotency"
	customerIndex           = "customer_id-created_at"
)

// API is the subset of the DynamoDB client used by this package.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Config describes how to reach DynamoDB. Endpoint and static credentials
// are meant for DynamoDB Local; leave them empty to use the default AWS
// credential chain.
type Config struct {
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	QuotesTable      string
	IdempotencyTable string
}

// NewClient builds a DynamoDB client from cfg.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}

	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// HealthChecker reports whether the quotes table is reachable.
type HealthChecker struct {
	api   API
	table string
}

var _ ports.HealthChecker = (*HealthChecker)(nil)

// NewHealthChecker creates a checker for table.
func NewHealthChecker(api API, table string) *HealthChecker {
	if table == "" {
		table = DefaultQuotesTable
	}

	return &HealthChecker{api: api, table: table}
}

// Name implements ports.HealthChecker.
func (h *HealthChecker) Name() string { return "dynamodb" }

// Check describes the table.
func (h *HealthChecker) Check(ctx context.Context) error {
	_, err := h.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(h.table)})

	return err
}

func conditionFailed(err error) (*types.ConditionalCheckFailedException, bool) {
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return cfe, true
	}

	return nil, false
}

func mapError(err error, entity, id string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("dynamodb %s table: %w", entity, err)
	}

	return domain.NewUnavailableError("dynamodb", fmt.Sprintf("%s %s: %v", entity, id, err))
}
