package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("openminutes/business")

	// Pipeline metrics
	PipelineRunsTotal   metric.Int64Counter
	PipelineRunDuration metric.Float64Histogram

	// Segment metrics
	SegmentsTranscribedTotal metric.Int64Counter
	SegmentDuration          metric.Float64Histogram

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// Summary metrics
	SummaryTokensTotal metric.Int64Counter
)

func Init() error {
	var err error

	PipelineRunsTotal, err = meter.Int64Counter(
		"pipeline.runs.total",
		metric.WithDescription("Total number of transcription pipeline runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	PipelineRunDuration, err = meter.Float64Histogram(
		"pipeline.run.duration",
		metric.WithDescription("Duration of a full transcription pipeline run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return err
	}

	SegmentsTranscribedTotal, err = meter.Int64Counter(
		"pipeline.segments.total",
		metric.WithDescription("Total number of audio segments submitted for recognition"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	SegmentDuration, err = meter.Float64Histogram(
		"pipeline.segment.duration",
		metric.WithDescription("Duration of a single segment recognition call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	SummaryTokensTotal, err = meter.Int64Counter(
		"summary.tokens.total",
		metric.WithDescription("Total tokens reported by the text-generation service"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
