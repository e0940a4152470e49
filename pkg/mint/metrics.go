package mint

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	batches  metric.Int64Counter
	minted   metric.Int64Counter
	failures metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	var err error
	mtr := &metrics{}
	if mtr.batches, err = m.Int64Counter("mint.batches", metric.WithDescription("Number of mint batches started")); err != nil {
		return nil, fmt.Errorf("creating batches counter: %w", err)
	}
	if mtr.minted, err = m.Int64Counter("mint.assets", metric.WithDescription("Number of NFTs minted (confirmed)")); err != nil {
		return nil, fmt.Errorf("creating assets counter: %w", err)
	}
	if mtr.failures, err = m.Int64Counter("mint.failures", metric.WithDescription("Number of failed connect or mint operations, by stage")); err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}
	return mtr, nil
}

func (m *metrics) failed(ctx context.Context, stage Stage) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(stage))))
}
