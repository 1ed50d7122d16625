package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

// newValidator reports field paths by their koanf keys, so errors read
// "storage.postgres.max_conns" rather than Go field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}

		if name == "" {
			return strings.ToLower(f.Name)
		}

		return name
	})

	return v
}

// Validate checks struct tags and the rules that span sections. The
// service refuses to start on the first invalid config.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}

		for _, e := range verrs {
			problems = append(problems, formatFieldError(e))
		}
	}

	problems = append(problems, c.crossFieldProblems()...)

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(problems, "\n  "))
}

func (c *Config) crossFieldProblems() []string {
	var problems []string

	if c.Storage.Driver == DriverPostgres && c.Storage.Postgres.DSN == "" {
		problems = append(problems, "storage.postgres.dsn is required when storage.driver is postgres")
	}

	if c.Idempotency.Driver == DriverPostgres && c.Storage.Driver != DriverPostgres {
		problems = append(problems, "idempotency.driver postgres requires storage.driver postgres")
	}

	if c.Idempotency.Driver == DriverDynamoDB && c.Storage.Driver != DriverDynamoDB {
		problems = append(problems, "idempotency.driver dynamodb requires storage.driver dynamodb")
	}

	usesRedis := c.Idempotency.Driver == DriverRedis || c.Events.Driver == DriverRedis
	if usesRedis && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr is required when a redis driver is selected")
	}

	if c.Expiry.Driver == DriverLmstfy && (c.Expiry.Lmstfy.Host == "" || c.Expiry.Lmstfy.Queue == "") {
		problems = append(problems, "expiry.lmstfy.host and expiry.lmstfy.queue are required when expiry.driver is lmstfy")
	}

	for pair, raw := range c.Pricing.ExchangeRates {
		from, to, ok := strings.Cut(pair, "_")
		if !ok || len(from) != 3 || len(to) != 3 {
			problems = append(problems, fmt.Sprintf("pricing.exchange_rates.%s must be named FROM_TO", pair))
			continue
		}

		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			problems = append(problems, fmt.Sprintf("pricing.exchange_rates.%s must be a positive decimal", pair))
		}
	}

	return problems
}

// formatFieldError formats a single field validation error.
func formatFieldError(e validator.FieldError) string {
	field := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}

// formatFieldPath drops the root struct name: "Config.server.port" becomes
// "server.port".
func formatFieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}

	return namespace
}
