package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce      sync.Once
	pipelineRuns     metric.Int64Counter
	pipelineDuration metric.Float64Histogram
	answersGenerated metric.Int64Counter
)

func initMetrics() {
	meter := otel.Meter("tender-response-platform")

	pipelineRuns, _ = meter.Int64Counter(
		"pipeline.runs.total",
		metric.WithDescription("Total pipeline runs by terminal status"),
	)
	pipelineDuration, _ = meter.Float64Histogram(
		"pipeline.run.duration",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
	)
	answersGenerated, _ = meter.Int64Counter(
		"pipeline.answers.total",
		metric.WithDescription("Total answers generated, including fallbacks"),
	)
}

// RecordPipelineRun records one completed pipeline run.
func RecordPipelineRun(ctx context.Context, status string, durationSeconds float64, answers, fallbacks int) {
	metricsOnce.Do(initMetrics)

	statusAttr := metric.WithAttributes(attribute.String("status", status))
	if pipelineRuns != nil {
		pipelineRuns.Add(ctx, 1, statusAttr)
	}
	if pipelineDuration != nil {
		pipelineDuration.Record(ctx, durationSeconds, statusAttr)
	}
	if answersGenerated != nil {
		answersGenerated.Add(ctx, int64(answers-fallbacks), metric.WithAttributes(attribute.String("kind", "generated")))
		answersGenerated.Add(ctx, int64(fallbacks), metric.WithAttributes(attribute.String("kind", "fallback")))
	}
}
