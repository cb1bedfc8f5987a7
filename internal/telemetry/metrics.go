package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/lodgepole-labs/lodgepole"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Authentication metrics
	AuthResolutionsTotal   metric.Int64Counter
	AuthFailuresTotal      metric.Int64Counter
	APIKeyValidationsTotal metric.Int64Counter

	// Audit trail metrics
	AuditEntriesWrittenTotal metric.Int64Counter
	AuditEntriesDroppedTotal metric.Int64Counter
	AuditWriteDuration       metric.Float64Histogram

	// Rate limit metrics
	RateLimitRejectionsTotal metric.Int64Counter

	// HTTP metrics
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AuthResolutionsTotal, _ = meter.Int64Counter(
		"lodgepole.auth.resolutions.total",
		metric.WithDescription("Total number of credential resolution attempts"),
		metric.WithUnit("{request}"),
	)

	m.AuthFailuresTotal, _ = meter.Int64Counter(
		"lodgepole.auth.failures.total",
		metric.WithDescription("Total number of failed credential resolutions"),
		metric.WithUnit("{request}"),
	)

	m.APIKeyValidationsTotal, _ = meter.Int64Counter(
		"lodgepole.apikeys.validations.total",
		metric.WithDescription("Total number of API key validation attempts"),
		metric.WithUnit("{request}"),
	)

	m.AuditEntriesWrittenTotal, _ = meter.Int64Counter(
		"lodgepole.audit.entries.written.total",
		metric.WithDescription("Total number of audit entries persisted"),
		metric.WithUnit("{entry}"),
	)

	m.AuditEntriesDroppedTotal, _ = meter.Int64Counter(
		"lodgepole.audit.entries.dropped.total",
		metric.WithDescription("Total number of audit entries dropped due to overflow or write failure"),
		metric.WithUnit("{entry}"),
	)

	m.AuditWriteDuration, _ = meter.Float64Histogram(
		"lodgepole.audit.write.duration",
		metric.WithDescription("Duration of audit entry writes"),
		metric.WithUnit("ms"),
	)

	m.RateLimitRejectionsTotal, _ = meter.Int64Counter(
		"lodgepole.ratelimit.rejections.total",
		metric.WithDescription("Total number of requests rejected by rate limiting"),
		metric.WithUnit("{request}"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"lodgepole.http.requests.total",
		metric.WithDescription("Total number of HTTP requests served"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"lodgepole.http.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	return m
}
