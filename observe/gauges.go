package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/metatools/cache"
)

// CacheStatsFunc reports current stats for every provider cache, keyed by provider.
type CacheStatsFunc func() map[string]cache.Stats

// RegisterCacheGauges exports provider cache size and capacity as observable
// gauges. stats is called on every collection; LRU.Stats sweeps expired
// entries, so the exported size never counts them. Unregister the returned
// registration to stop reporting.
func RegisterCacheGauges(meter metric.Meter, stats CacheStatsFunc) (metric.Registration, error) {
	if stats == nil {
		return nil, ErrNilStatsFunc
	}

	size, err := meter.Int64ObservableGauge(MetricCacheSize,
		metric.WithDescription("Live entries in a provider cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	maxSize, err := meter.Int64ObservableGauge(MetricCacheMaxSize,
		metric.WithDescription("Capacity of a provider cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for provider, s := range stats() {
			opt := metric.WithAttributes(attribute.String("tool.provider", provider))
			o.ObserveInt64(size, int64(s.Size), opt)
			o.ObserveInt64(maxSize, int64(s.MaxSize), opt)
		}
		return nil
	}, size, maxSize)
}
