package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type pipelineMetrics struct {
	jobsCompleted metric.Int64Counter
	jobsFailed    metric.Int64Counter
	stageSeconds  metric.Float64Histogram
}

func newPipelineMetrics() (*pipelineMetrics, error) {
	meter := otel.Meter("github.com/recaplabs/recapd/pipeline")

	completed, err := meter.Int64Counter("recapd.jobs.completed",
		metric.WithDescription("Jobs that reached the completed state"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("recapd.jobs.failed",
		metric.WithDescription("Jobs that reached the failed state"))
	if err != nil {
		return nil, err
	}
	stage, err := meter.Float64Histogram("recapd.stage.duration.seconds",
		metric.WithDescription("Wall-clock duration of pipeline stages"))
	if err != nil {
		return nil, err
	}
	return &pipelineMetrics{
		jobsCompleted: completed,
		jobsFailed:    failed,
		stageSeconds:  stage,
	}, nil
}

func (m *pipelineMetrics) recordStage(ctx context.Context, stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageSeconds.Record(ctx, seconds, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *pipelineMetrics) recordCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.jobsCompleted.Add(ctx, 1)
}

func (m *pipelineMetrics) recordFailed(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.jobsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}
