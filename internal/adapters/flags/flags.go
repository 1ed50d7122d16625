// Package flags serves feature flags from configuration. Values are kept as
// strings and parsed on lookup, so one table backs boolean, string and
// integer flags alike.
package flags

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// Static is an in-process flag table. It is safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ ports.FeatureFlags = (*Static)(nil)

// NewStatic copies values into a new table. Flag names are case-insensitive.
func NewStatic(values map[string]string) *Static {
	s := &Static{values: make(map[string]string, len(values))}

	for name, v := range values {
		s.values[normalize(name)] = strings.TrimSpace(v)
	}

	return s
}

// Set overrides a flag at runtime.
func (s *Static) Set(flag, value string) {
	s.mu.Lock()
	s.values[normalize(flag)] = strings.TrimSpace(value)
	s.mu.Unlock()
}

// Snapshot returns a copy of every flag.
func (s *Static) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}

	return out
}

// IsEnabled implements ports.FeatureFlags. Values accepted by
// strconv.ParseBool plus on/off and yes/no are understood; anything else
// yields defaultValue.
func (s *Static) IsEnabled(ctx context.Context, flag string, defaultValue bool) bool {
	raw, ok := s.lookup(flag)
	if !ok {
		return defaultValue
	}

	switch strings.ToLower(raw) {
	case "on", "yes":
		return true
	case "off", "no":
		return false
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "invalid boolean flag, using default",
			slog.String("flag", flag), slog.String("value", raw), slog.Bool("default", defaultValue))

		return defaultValue
	}

	return v
}

// GetString implements ports.FeatureFlags.
func (s *Static) GetString(_ context.Context, flag string, defaultValue string) string {
	if raw, ok := s.lookup(flag); ok {
		return raw
	}

	return defaultValue
}

// GetInt implements ports.FeatureFlags.
func (s *Static) GetInt(ctx context.Context, flag string, defaultValue int) int {
	raw, ok := s.lookup(flag)
	if !ok {
		return defaultValue
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "invalid integer flag, using default",
			slog.String("flag", flag), slog.String("value", raw), slog.Int("default", defaultValue))

		return defaultValue
	}

	return v
}

func (s *Static) lookup(flag string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[normalize(flag)]

	return v, ok
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
