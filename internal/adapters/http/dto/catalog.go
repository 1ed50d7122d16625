package dto

import (
	"strings"
	"time"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// ListRatesQuery is the query string of GET /rates.
type ListRatesQuery struct {
	Mode        string `form:"mode"        validate:"omitempty,oneof=SEA AIR sea air"`
	ServiceType string `form:"service"     validate:"omitempty,oneof=FCL LCL AIR fcl lcl air"`
	Origin      string `form:"origin"      validate:"omitempty,locode"`
	Destination string `form:"destination" validate:"omitempty,locode"`
}

// ToFilter converts the query into a rate filter with upper-cased codes.
func (q *ListRatesQuery) ToFilter() ports.RateFilter {
	return ports.RateFilter{
		Mode:        domain.Mode(strings.ToUpper(q.Mode)),
		Service:     domain.ServiceType(strings.ToUpper(q.ServiceType)),
		Origin:      strings.ToUpper(strings.TrimSpace(q.Origin)),
		Destination: strings.ToUpper(strings.TrimSpace(q.Destination)),
	}
}

// RateResponse is a published lane rate.
type RateResponse struct {
	ID            string     `json:"id"`
	Mode          string     `json:"mode"`
	ServiceType   string     `json:"service_type"`
	Origin        string     `json:"origin"`
	Destination   string     `json:"destination"`
	ContainerType string     `json:"container_type,omitempty"`
	Basis         string     `json:"basis"`
	Price         string     `json:"price"`
	MinimumCharge string     `json:"minimum_charge,omitempty"`
	Currency      string     `json:"currency"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	Version       int        `json:"version"`
}

// NewRateResponse converts a rate entry. Open window ends are omitted.
func NewRateResponse(r domain.RateEntry) RateResponse {
	resp := RateResponse{
		ID:            r.ID,
		Mode:          string(r.Mode),
		ServiceType:   string(r.Service),
		Origin:        r.Origin,
		Destination:   r.Destination,
		ContainerType: string(r.ContainerType),
		Basis:         string(r.Basis),
		Price:         r.Price.String(),
		Currency:      r.Currency,
		Version:       r.Version,
	}

	if !r.MinimumCharge.IsZero() {
		resp.MinimumCharge = money(r.MinimumCharge)
	}

	if !r.EffectiveFrom.IsZero() {
		resp.EffectiveFrom = utc(&r.EffectiveFrom)
	}

	if !r.EffectiveTo.IsZero() {
		resp.EffectiveTo = utc(&r.EffectiveTo)
	}

	return resp
}

// AccessorialResponse is a surcharge rule.
type AccessorialResponse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Method      string `json:"method"`
	Value       string `json:"value"`
}

// NewAccessorialResponse converts an accessorial rule.
func NewAccessorialResponse(a domain.AccessorialRule) AccessorialResponse {
	return AccessorialResponse{
		Code:        a.Code,
		Description: a.Description,
		Method:      string(a.Method),
		Value:       a.Value.String(),
	}
}

// ListResponse wraps an unpaged collection.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse converts every element with conv.
func NewListResponse[S, T any](src []S, conv func(S) T) *ListResponse[T] {
	items := make([]T, 0, len(src))
	for _, s := range src {
		items = append(items, conv(s))
	}

	return &ListResponse[T]{Items: items, Count: len(items)}
}
