package metrics

import (
	"context"
	"fmt"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"sort"
)

// Provider is the meter provider of the process. Its reader is collected on demand,
// so values only leave the process through Snapshot.
type Provider struct {
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
}

func NewProvider() *Provider {
	reader := sdkmetric.NewManualReader()
	return &Provider{
		reader: reader,
		mp:     sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.mp
}

func (p *Provider) Shutdown(ctx context.Context) error {
	return p.mp.Shutdown(ctx)
}

type Point struct {
	Attributes map[string]string `json:"attributes"`
	Value      int64             `json:"value"`
}

// Snapshot returns the cumulative value of every counter, keyed by instrument name.
func (p *Provider) Snapshot(ctx context.Context) (map[string][]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	res := map[string][]Point{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}

			points := make([]Point, 0, len(sum.DataPoints))
			for _, dp := range sum.DataPoints {
				attrs := make(map[string]string, dp.Attributes.Len())
				for iter := dp.Attributes.Iter(); iter.Next(); {
					kv := iter.Attribute()
					attrs[string(kv.Key)] = kv.Value.Emit()
				}
				points = append(points, Point{Attributes: attrs, Value: dp.Value})
			}

			// 输出顺序固定，map 打印时按 key 排序
			sort.Slice(points, func(i, j int) bool {
				return fmt.Sprint(points[i].Attributes) < fmt.Sprint(points[j].Attributes)
			})
			res[m.Name] = points
		}
	}

	return res, nil
}
