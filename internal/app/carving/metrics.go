package carving

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "carvex.carving"

// CarverMetrics records scan-loop telemetry.
type CarverMetrics interface {
	// IncBlocksScanned increments the count of blocks read and carved.
	IncBlocksScanned(ctx context.Context)

	// IncReadErrors increments the count of tolerated read failures on
	// physical media.
	IncReadErrors(ctx context.Context)

	// IncCandidates increments the count of candidates a carving pass
	// emitted, labeled by method.
	IncCandidates(ctx context.Context, method string)

	// IncDuplicates increments the count of candidates dropped by the
	// fingerprint cache.
	IncDuplicates(ctx context.Context)

	// IncFiltered increments the count of candidates dropped by the
	// filter chain.
	IncFiltered(ctx context.Context)

	// IncRecovered increments the count of accepted recoveries, labeled
	// by method.
	IncRecovered(ctx context.Context, method string)

	// IncWriteErrors increments the count of candidates lost to
	// persistence failures.
	IncWriteErrors(ctx context.Context)

	// ObserveCacheSize records the fingerprint cache size after a cleanup
	// pass.
	ObserveCacheSize(ctx context.Context, size int)

	// ObserveMemoryUsage records measured process memory in megabytes.
	ObserveMemoryUsage(ctx context.Context, mb float64)
}

type carverMetrics struct {
	blocksScanned metric.Int64Counter
	readErrors    metric.Int64Counter
	candidates    metric.Int64Counter
	duplicates    metric.Int64Counter
	filtered      metric.Int64Counter
	recovered     metric.Int64Counter
	writeErrors   metric.Int64Counter
	cacheSize     metric.Int64Histogram
	memoryUsageMB metric.Float64Histogram
}

var _ CarverMetrics = (*carverMetrics)(nil)

// NewCarverMetrics builds the scan-loop instruments on the given provider.
func NewCarverMetrics(mp metric.MeterProvider) (CarverMetrics, error) {
	meter := mp.Meter(meterName)

	m := new(carverMetrics)
	var err error

	if m.blocksScanned, err = meter.Int64Counter(
		"blocks_scanned_total",
		metric.WithDescription("Total device blocks read and carved"),
	); err != nil {
		return nil, fmt.Errorf("creating blocks_scanned_total: %w", err)
	}
	if m.readErrors, err = meter.Int64Counter(
		"read_errors_total",
		metric.WithDescription("Tolerated read failures on physical media"),
	); err != nil {
		return nil, fmt.Errorf("creating read_errors_total: %w", err)
	}
	if m.candidates, err = meter.Int64Counter(
		"candidates_total",
		metric.WithDescription("Candidates emitted by carving passes"),
	); err != nil {
		return nil, fmt.Errorf("creating candidates_total: %w", err)
	}
	if m.duplicates, err = meter.Int64Counter(
		"duplicates_total",
		metric.WithDescription("Candidates dropped as already-seen content"),
	); err != nil {
		return nil, fmt.Errorf("creating duplicates_total: %w", err)
	}
	if m.filtered, err = meter.Int64Counter(
		"filtered_total",
		metric.WithDescription("Candidates dropped by the filter chain"),
	); err != nil {
		return nil, fmt.Errorf("creating filtered_total: %w", err)
	}
	if m.recovered, err = meter.Int64Counter(
		"recovered_total",
		metric.WithDescription("Recoveries accepted and reported"),
	); err != nil {
		return nil, fmt.Errorf("creating recovered_total: %w", err)
	}
	if m.writeErrors, err = meter.Int64Counter(
		"write_errors_total",
		metric.WithDescription("Candidates lost to persistence failures"),
	); err != nil {
		return nil, fmt.Errorf("creating write_errors_total: %w", err)
	}
	if m.cacheSize, err = meter.Int64Histogram(
		"fingerprint_cache_size",
		metric.WithDescription("Fingerprint cache size after cleanup passes"),
	); err != nil {
		return nil, fmt.Errorf("creating fingerprint_cache_size: %w", err)
	}
	if m.memoryUsageMB, err = meter.Float64Histogram(
		"memory_usage_mb",
		metric.WithDescription("Measured process resident memory in megabytes"),
	); err != nil {
		return nil, fmt.Errorf("creating memory_usage_mb: %w", err)
	}

	return m, nil
}

func methodAttr(method string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("method", method))
}

func (m *carverMetrics) IncBlocksScanned(ctx context.Context) { m.blocksScanned.Add(ctx, 1) }
func (m *carverMetrics) IncReadErrors(ctx context.Context)    { m.readErrors.Add(ctx, 1) }
func (m *carverMetrics) IncCandidates(ctx context.Context, method string) {
	m.candidates.Add(ctx, 1, methodAttr(method))
}
func (m *carverMetrics) IncDuplicates(ctx context.Context) { m.duplicates.Add(ctx, 1) }
func (m *carverMetrics) IncFiltered(ctx context.Context)   { m.filtered.Add(ctx, 1) }
func (m *carverMetrics) IncRecovered(ctx context.Context, method string) {
	m.recovered.Add(ctx, 1, methodAttr(method))
}
func (m *carverMetrics) IncWriteErrors(ctx context.Context) { m.writeErrors.Add(ctx, 1) }
func (m *carverMetrics) ObserveCacheSize(ctx context.Context, size int) {
	m.cacheSize.Record(ctx, int64(size))
}
func (m *carverMetrics) ObserveMemoryUsage(ctx context.Context, mb float64) {
	m.memoryUsageMB.Record(ctx, mb)
}

// NoopCarverMetrics discards all measurements. Used when telemetry is
// disabled.
type NoopCarverMetrics struct{}

var _ CarverMetrics = NoopCarverMetrics{}

func (NoopCarverMetrics) IncBlocksScanned(context.Context)        {}
func (NoopCarverMetrics) IncReadErrors(context.Context)           {}
func (NoopCarverMetrics) IncCandidates(context.Context, string)   {}
func (NoopCarverMetrics) IncDuplicates(context.Context)           {}
func (NoopCarverMetrics) IncFiltered(context.Context)             {}
func (NoopCarverMetrics) IncRecovered(context.Context, string)    {}
func (NoopCarverMetrics) IncWriteErrors(context.Context)          {}
func (NoopCarverMetrics) ObserveCacheSize(context.Context, int)   {}
func (NoopCarverMetrics) ObserveMemoryUsage(context.Context, float64) {}
