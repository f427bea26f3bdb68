package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	instrumentationName = "kind4-archive"
	metricKeyPrefix     = "archive."
)

// ArchiveMetrics counts what goes in and out of the archive.
type ArchiveMetrics struct {
	archived metric.Int64Counter
	rejected metric.Int64Counter
	queries  metric.Int64Counter
}

// NewArchiveMetrics registers the archive instruments on provider. A nil provider disables metrics.
func NewArchiveMetrics(provider metric.MeterProvider) (*ArchiveMetrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	archived, err := meter.Int64Counter(metricKeyPrefix+"events.archived",
		metric.WithDescription("Direct messages written to the archive"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("events.archived counter: %w", err)
	}
	rejected, err := meter.Int64Counter(metricKeyPrefix+"events.rejected",
		metric.WithDescription("Events refused by the archive, by reason"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("events.rejected counter: %w", err)
	}
	queries, err := meter.Int64Counter(metricKeyPrefix+"queries",
		metric.WithDescription("Listing and count queries served"),
		metric.WithUnit("{queries}"),
	)
	if err != nil {
		return nil, fmt.Errorf("queries counter: %w", err)
	}
	return &ArchiveMetrics{archived: archived, rejected: rejected, queries: queries}, nil
}

func (m *ArchiveMetrics) Archived(ctx context.Context) {
	m.archived.Add(ctx, 1)
}

func (m *ArchiveMetrics) Rejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *ArchiveMetrics) Queried(ctx context.Context, query string) {
	m.queries.Add(ctx, 1, metric.WithAttributes(attribute.String("query", query)))
}

// Collector keeps metrics in memory so the debug server can show them on demand.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

func NewCollector() *Collector {
	reader := sdkmetric.NewManualReader()
	return &Collector{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

func (c *Collector) Provider() metric.MeterProvider {
	return c.provider
}

// Snapshot flattens every integer sum into "name{attr=value,...}" -> value.
func (c *Collector) Snapshot(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	snapshot := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				snapshot[seriesName(m.Name, point.Attributes)] += point.Value
			}
		}
	}
	return snapshot, nil
}

func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func seriesName(name string, attrs attribute.Set) string {
	if attrs.Len() == 0 {
		return name
	}
	encoded := attrs.Encoded(attribute.DefaultEncoder())
	return name + "{" + encoded + "}"
}
