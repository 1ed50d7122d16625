package ports

import "context"

// Feature flag names read by the quotation core.
const (
	// FlagLazyExpiry expires overdue ISSUED quotes when they are read.
	FlagLazyExpiry = "quotes.lazy-expiry"

	// FlagScheduleExpiry schedules a delayed expiry job when a quote is issued.
	FlagScheduleExpiry = "quotes.schedule-expiry"
)

// FeatureFlags evaluates feature toggles. Every lookup takes a default so a
// missing flag or failed evaluation degrades gracefully.
//
//	if flags.IsEnabled(ctx, ports.FlagLazyExpiry, true) {
//	    quote, err = s.expireIfOverdue(ctx, quote)
//	}
type FeatureFlags interface {
	IsEnabled(ctx context.Context, flag string, defaultValue bool) bool
	GetString(ctx context.Context, flag string, defaultValue string) string
	GetInt(ctx context.Context, flag string, defaultValue int) int
}
