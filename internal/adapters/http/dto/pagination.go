package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// Page size bounds for list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor errors.
var (
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrNoCursor signals a first-page request.
	ErrNoCursor = errors.New("no cursor provided")
)

// cursorFieldCreatedAt names the sort key quote cursors are positioned on.
const cursorFieldCreatedAt = "created_at"

// PaginationRequest holds the common paging query parameters.
type PaginationRequest struct {
	// Cursor is the opaque nextCursor of a previous page.
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"  json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns Limit bounded to [1, MaxLimit], DefaultLimit when unset.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// QuoteCursor decodes Cursor as a quote listing position. It returns
// ErrNoCursor for an empty cursor.
func (p *PaginationRequest) QuoteCursor() (*ports.QuoteCursor, error) {
	data, err := DecodeCursor(p.Cursor)
	if err != nil {
		return nil, err
	}

	if data.Field != cursorFieldCreatedAt || data.ID == "" {
		return nil, ErrInvalidCursor
	}

	at, err := time.Parse(time.RFC3339Nano, data.Value)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &ports.QuoteCursor{CreatedAt: at, ID: data.ID}, nil
}

// EncodeQuoteCursor renders a listing position as an opaque cursor. A nil
// position yields "".
func EncodeQuoteCursor(c *ports.QuoteCursor) string {
	if c == nil {
		return ""
	}

	return EncodeCursor(&CursorData{
		Field: cursorFieldCreatedAt,
		Value: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID:    c.ID,
	})
}

// PaginatedResponse is one page of a list endpoint.
type PaginatedResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// NewPaginatedResponse builds a page. items is never encoded as null.
func NewPaginatedResponse[T any](items []T, nextCursor string) *PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}

	return &PaginatedResponse[T]{Items: items, NextCursor: nextCursor, HasMore: nextCursor != ""}
}

// CursorData is the decoded form of a cursor: the sort field, its value at
// the position, and the id that breaks ties.
type CursorData struct {
	Field string `json:"f"`
	Value string `json:"v"`
	ID    string `json:"id"`
}

// EncodeCursor encodes data as URL-safe base64 JSON.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor. It returns ErrNoCursor for "".
func DecodeCursor(encoded string) (*CursorData, error) {
	if encoded == "" {
		return nil, ErrNoCursor
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}
