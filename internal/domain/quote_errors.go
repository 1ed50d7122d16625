package domain

import (
	"errors"
	"fmt"
	"time"
)

// Stable machine-readable codes for pricing and lifecycle failures.
const (
	CodeRateNotFound           = "RATE_NOT_FOUND"
	CodeAccessorialNotFound    = "ACCESSORIAL_NOT_FOUND"
	CodeMissingExchangeRate    = "MISSING_EXCHANGE_RATE"
	CodeNotQuotable            = "NOT_QUOTABLE"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeQuoteExpired           = "QUOTE_EXPIRED"
)

// RateNotFoundError reports that no effective rate exists for a lane.
type RateNotFoundError struct {
	Key RateKey
}

func (e *RateNotFoundError) Error() string {
	return "no rate found for " + e.Key.String()
}

func (e *RateNotFoundError) Unwrap() error { return ErrNotQuotable }

// Code returns the stable error code.
func (e *RateNotFoundError) Code() string { return CodeRateNotFound }

// Fields returns structured details for API responses.
func (e *RateNotFoundError) Fields() map[string]string {
	fields := map[string]string{
		"mode":        string(e.Key.Mode),
		"service":     string(e.Key.Service),
		"origin":      e.Key.Origin,
		"destination": e.Key.Destination,
	}
	if e.Key.ContainerType != "" {
		fields["container_type"] = string(e.Key.ContainerType)
	}

	return fields
}

// AccessorialNotFoundError reports an unknown surcharge code.
type AccessorialNotFoundError struct {
	AccessorialCode string
}

func (e *AccessorialNotFoundError) Error() string {
	return fmt.Sprintf("accessorial %q not found", e.AccessorialCode)
}

func (e *AccessorialNotFoundError) Unwrap() error { return ErrNotQuotable }

// Code returns the stable error code.
func (e *AccessorialNotFoundError) Code() string { return CodeAccessorialNotFound }

// Fields returns structured details for API responses.
func (e *AccessorialNotFoundError) Fields() map[string]string {
	return map[string]string{"accessorial": e.AccessorialCode}
}

// MissingExchangeRateError reports that a settlement currency cannot be reached.
type MissingExchangeRateError struct {
	From string
	To   string
}

func (e *MissingExchangeRateError) Error() string {
	return fmt.Sprintf("no exchange rate from %s to %s", e.From, e.To)
}

func (e *MissingExchangeRateError) Unwrap() error { return ErrNotQuotable }

// Code returns the stable error code.
func (e *MissingExchangeRateError) Code() string { return CodeMissingExchangeRate }

// Fields returns structured details for API responses.
func (e *MissingExchangeRateError) Fields() map[string]string {
	return map[string]string{"from_currency": e.From, "to_currency": e.To}
}

// NotQuotableError covers reference data inconsistencies such as a lane
// whose container rates are published in different currencies.
type NotQuotableError struct {
	Reason string
}

func (e *NotQuotableError) Error() string { return "not quotable: " + e.Reason }

func (e *NotQuotableError) Unwrap() error { return ErrNotQuotable }

// Code returns the stable error code.
func (e *NotQuotableError) Code() string { return CodeNotQuotable }

// Fields returns structured details for API responses.
func (e *NotQuotableError) Fields() map[string]string {
	return map[string]string{"reason": e.Reason}
}

// InvalidTransitionError reports a status change the lifecycle table forbids.
type InvalidTransitionError struct {
	QuoteID string
	From    QuoteStatus
	To      QuoteStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("quote %s: cannot transition from %s to %s", e.QuoteID, e.From, e.To)
}

// Unwrap lets errors.Is match both ErrInvalidTransition and ErrConflict.
func (e *InvalidTransitionError) Unwrap() []error {
	return []error{ErrInvalidTransition, ErrConflict}
}

// Code returns the stable error code.
func (e *InvalidTransitionError) Code() string { return CodeInvalidTransition }

// Fields returns structured details for API responses.
func (e *InvalidTransitionError) Fields() map[string]string {
	return map[string]string{
		"quote_id":       e.QuoteID,
		"current_status": string(e.From),
		"target_status":  string(e.To),
	}
}

// ConcurrentModificationError reports that the quote changed status between
// the read and the compare-and-set.
type ConcurrentModificationError struct {
	QuoteID  string
	Expected QuoteStatus
	Actual   QuoteStatus
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("quote %s: expected status %s but found %s", e.QuoteID, e.Expected, e.Actual)
}

// Unwrap lets errors.Is match both ErrConcurrentModification and ErrConflict.
func (e *ConcurrentModificationError) Unwrap() []error {
	return []error{ErrConcurrentModification, ErrConflict}
}

// Code returns the stable error code.
func (e *ConcurrentModificationError) Code() string { return CodeConcurrentModification }

// Fields returns structured details for API responses.
func (e *ConcurrentModificationError) Fields() map[string]string {
	return map[string]string{
		"quote_id":        e.QuoteID,
		"expected_status": string(e.Expected),
		"current_status":  string(e.Actual),
	}
}

// QuoteExpiredError reports an acceptance attempt after valid_until.
type QuoteExpiredError struct {
	QuoteID    string
	ValidUntil time.Time
}

func (e *QuoteExpiredError) Error() string {
	return fmt.Sprintf("quote %s expired at %s", e.QuoteID, e.ValidUntil.Format(time.RFC3339))
}

// Unwrap lets errors.Is match both ErrQuoteExpired and ErrConflict.
func (e *QuoteExpiredError) Unwrap() []error {
	return []error{ErrQuoteExpired, ErrConflict}
}

// Code returns the stable error code.
func (e *QuoteExpiredError) Code() string { return CodeQuoteExpired }

// Fields returns structured details for API responses.
func (e *QuoteExpiredError) Fields() map[string]string {
	return map[string]string{
		"quote_id":       e.QuoteID,
		"current_status": string(StatusExpired),
		"valid_until":    e.ValidUntil.UTC().Format(time.RFC3339),
	}
}

// IsInvalidTransition checks if an error is a lifecycle table violation.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsConcurrentModification checks if an error is a lost compare-and-set.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsQuoteExpired checks if an error is an expired-acceptance failure.
func IsQuoteExpired(err error) bool {
	return errors.Is(err, ErrQuoteExpired)
}
