package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/clients"
	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

// BaseAdapter is embedded by adapters to share error translation.
type BaseAdapter struct {
	client  *clients.Client
	service string
}

// NewBaseAdapter wraps client under the given downstream name.
func NewBaseAdapter(client *clients.Client, service string) BaseAdapter {
	return BaseAdapter{client: client, service: service}
}

// ServiceName returns the downstream name.
func (a *BaseAdapter) ServiceName() string { return a.service }

// Get fetches path and returns the body of a 2xx response, which the
// caller must close. Any other outcome is returned as a domain error.
func (a *BaseAdapter) Get(ctx context.Context, path, operation, entityID string) (io.ReadCloser, error) {
	resp, err := a.client.Get(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, MapHTTPError(nil, err, a.service, operation, entityID)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.service, operation, entityID)
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, errors.New("response body is nil")
	}
	defer func() { _ = body.Close() }()

	var out T
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &out, nil
}

// ValidateRequired rejects an empty external field.
func ValidateRequired(value, field string) error {
	if value == "" {
		return domain.NewValidationError(field, "is required")
	}

	return nil
}
