// Package observe provides application-wide observability primitives for
// lyricsync: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all lyricsync metrics.
const meterName = "github.com/MrWong99/lyricsync"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// AlignDuration tracks how long one alignment run takes.
	AlignDuration metric.Float64Histogram

	// STTDuration tracks batch transcription latency.
	STTDuration metric.Float64Histogram

	// LyricsDuration tracks lyrics source lookup latency.
	LyricsDuration metric.Float64Histogram

	// --- Alignment ---

	// AlignSegments counts aligned segments. Use with attribute:
	//   attribute.String("outcome", "replaced"|"kept"|"skipped")
	AlignSegments metric.Int64Counter

	// AlignScore records the best-match score of every scored segment.
	AlignScore metric.Float64Histogram

	// AlignFallbacks counts alignment runs that were bypassed. Use with
	// attribute:
	//   attribute.String("reason", ...)
	AlignFallbacks metric.Int64Counter

	// TimelineGroups counts synthesized phrase groups.
	TimelineGroups metric.Int64Counter

	// --- Providers ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of open karaoke websocket streams.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...),
	//   attribute.String("status_class", "2xx"|"4xx"|...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Alignment
// is sub-second; transcription of a full song can take minutes.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 180,
}

// scoreBuckets spans the [0, 100] similarity range, denser near the default
// threshold.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 75, 80, 85, 90, 95, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AlignDuration, err = m.Float64Histogram("lyricsync.align.duration",
		metric.WithDescription("Latency of one lyrics alignment run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("lyricsync.stt.duration",
		metric.WithDescription("Latency of batch speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LyricsDuration, err = m.Float64Histogram("lyricsync.lyrics.duration",
		metric.WithDescription("Latency of reference lyrics lookup."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignScore, err = m.Float64Histogram("lyricsync.align.score",
		metric.WithDescription("Best-match similarity score per aligned segment."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AlignSegments, err = m.Int64Counter("lyricsync.align.segments",
		metric.WithDescription("Total aligned segments by outcome."),
	); err != nil {
		return nil, err
	}
	if met.AlignFallbacks, err = m.Int64Counter("lyricsync.align.fallbacks",
		metric.WithDescription("Total alignment runs bypassed, by reason."),
	); err != nil {
		return nil, err
	}
	if met.TimelineGroups, err = m.Int64Counter("lyricsync.timeline.groups",
		metric.WithDescription("Total synthesized phrase groups."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("lyricsync.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lyricsync.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("lyricsync.active_streams",
		metric.WithDescription("Number of open karaoke streams."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("lyricsync.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status class."),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordSegment records one segment's alignment outcome. score is only
// recorded for segments that were actually scored.
func (m *Metrics) RecordSegment(ctx context.Context, method, outcome string, score float64, scored bool) {
	m.AlignSegments.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("method", method),
		),
	)
	if scored {
		m.AlignScore.Record(ctx, score, metric.WithAttributes(attribute.String("method", method)))
	}
}

// RecordFallback records an alignment run that was bypassed.
func (m *Metrics) RecordFallback(ctx context.Context, reason string) {
	m.AlignFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordAlignDuration records the duration of one alignment run.
func (m *Metrics) RecordAlignDuration(ctx context.Context, d time.Duration) {
	m.AlignDuration.Record(ctx, d.Seconds())
}

// RecordTimeline records the number of phrase groups produced by one
// synthesis.
func (m *Metrics) RecordTimeline(ctx context.Context, groups int) {
	m.TimelineGroups.Add(ctx, int64(groups))
}
