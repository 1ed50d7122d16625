package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jsamuelsen/freight-quote-service/internal/platform/telemetry"

// HeaderTraceID carries the trace id back to callers so error reports can
// be matched to traces.
const HeaderTraceID = "X-Trace-ID"

// unmatchedRoute labels requests gin could not route, so probing random
// paths cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

type serverMetrics struct {
	duration      metric.Float64Histogram
	responseBytes metric.Int64Histogram
	inFlight      metric.Int64UpDownCounter
}

func newServerMetrics(meter metric.Meter) (*serverMetrics, error) {
	duration, err1 := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"))

	responseBytes, err2 := meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Size of response bodies; quote documents dominate the tail"),
		metric.WithUnit("By"))

	inFlight, err3 := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests currently being served"))

	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, err
	}

	return &serverMetrics{duration: duration, responseBytes: responseBytes, inFlight: inFlight}, nil
}

// Middleware records request duration, response size and in-flight count
// per route pattern (/api/v1/quotes/:id, never the raw path) and echoes the
// trace id. Mount it after TracingMiddleware so a span exists.
func Middleware() gin.HandlerFunc {
	m, err := newServerMetrics(otel.Meter(instrumentationName))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		if m == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		routeAttrs := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)

		m.inFlight.Add(ctx, 1, routeAttrs)
		defer m.inFlight.Add(ctx, -1, routeAttrs)

		c.Next()

		status := c.Writer.Status()
		done := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.String("http.status_class", strconv.Itoa(status/100)+"xx"),
		)

		m.duration.Record(ctx, time.Since(start).Seconds(), done)

		if size := c.Writer.Size(); size > 0 {
			m.responseBytes.Record(ctx, int64(size), done)
		}
	}
}

// TracingMiddleware starts a server span per request.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}
