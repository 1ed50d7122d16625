package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

const metricsNamespace = "freight_quote"

// QuoteMetrics exports quotation outcomes as Prometheus collectors.
type QuoteMetrics struct {
	created         *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	pricing         *prometheus.HistogramVec
}

var _ ports.QuoteMetrics = (*QuoteMetrics)(nil)

// NewQuoteMetrics creates the collectors and registers them with reg.
func NewQuoteMetrics(reg prometheus.Registerer) (*QuoteMetrics, error) {
	m := &QuoteMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "quotes_created_total",
			Help:      "Quotes returned by create, split by currency and whether the response was an idempotent replay.",
		}, []string{"currency", "replayed"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "quote_transitions_total",
			Help:      "Committed lifecycle transitions by target status.",
		}, []string{"status"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "event_publish_failures_total",
			Help:      "Lifecycle events that could not be published.",
		}, []string{"event_type"}),
		pricing: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "pricing_duration_seconds",
			Help:      "Time spent pricing a request, by outcome.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.created, m.transitions, m.publishFailures, m.pricing} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// QuoteCreated implements ports.QuoteMetrics.
func (m *QuoteMetrics) QuoteCreated(currency string, replayed bool) {
	m.created.WithLabelValues(currency, strconv.FormatBool(replayed)).Inc()
}

// QuoteTransitioned implements ports.QuoteMetrics.
func (m *QuoteMetrics) QuoteTransitioned(to domain.QuoteStatus) {
	m.transitions.WithLabelValues(string(to)).Inc()
}

// EventPublishFailed implements ports.QuoteMetrics.
func (m *QuoteMetrics) EventPublishFailed(eventType string) {
	m.publishFailures.WithLabelValues(eventType).Inc()
}

// PricingObserved implements ports.QuoteMetrics.
func (m *QuoteMetrics) PricingObserved(d time.Duration, outcome string) {
	m.pricing.WithLabelValues(outcome).Observe(d.Seconds())
}
