package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type turnMetrics struct {
	stageDuration metric.Int64Histogram
	turns         metric.Int64Counter
}

func newTurnMetrics() *turnMetrics {
	meter := otel.Meter("parley-relay/pipeline")
	stageDuration, _ := meter.Int64Histogram(
		"pipeline.stage.duration",
		metric.WithDescription("Wall-clock duration of a pipeline stage"),
		metric.WithUnit("ms"),
	)
	turns, _ := meter.Int64Counter(
		"pipeline.turns",
		metric.WithDescription("Completed conversational turns"),
	)
	return &turnMetrics{stageDuration: stageDuration, turns: turns}
}

func (m *turnMetrics) observeStage(ctx context.Context, stage Stage, ms int64) {
	if m.stageDuration == nil {
		return
	}
	m.stageDuration.Record(ctx, ms, metric.WithAttributes(attribute.String("stage", string(stage))))
}

func (m *turnMetrics) observeText(ctx context.Context, llmMS int64) {
	m.observeStage(ctx, StageForwarding, llmMS)
	if m.turns != nil {
		m.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "text")))
	}
}

func (m *turnMetrics) observeVoice(ctx context.Context) {
	if m.turns != nil {
		m.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "voice")))
	}
}
