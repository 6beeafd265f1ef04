// Package pipeline runs one recording through normalization, segmentation and
// sequential speech recognition, producing a single transcript. Each run is a
// pure function of its input file: runs share no mutable state beyond the
// pooled service clients, and every temporary artifact a run creates is
// removed before it returns.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openminutes/scribe/internal/audio"
	"github.com/openminutes/scribe/internal/config"
	"github.com/openminutes/scribe/internal/metrics"
	"github.com/openminutes/scribe/internal/services/audit"
	"github.com/openminutes/scribe/internal/services/recognition"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProgressFunc is invoked after each segment completes, with the number of
// segments finished so far and the total count.
type ProgressFunc func(done, total int)

// Result is a completed pipeline run.
type Result struct {
	Transcript string
	Segments   int
	Elapsed    time.Duration
}

// SegmentFailure halts the run at the first failed segment. Later segments are
// never submitted. The transcript accumulated from earlier segments is kept on
// the error for callers that choose to inspect it; by default the whole run
// counts as failed, since a structurally incomplete transcript has limited
// analytical value.
type SegmentFailure struct {
	Index   int // 0-based index of the failed segment
	Total   int
	Partial string
	Err     error
}

func (e *SegmentFailure) Error() string {
	return fmt.Sprintf("segment %d of %d failed: %v", e.Index+1, e.Total, e.Err)
}

func (e *SegmentFailure) Unwrap() error {
	return e.Err
}

// Pipeline holds the collaborators shared across runs. Safe for concurrent
// use: concurrent runs are independent instances of the same flow.
type Pipeline struct {
	recognizer recognition.Recognizer
	sink       audit.Logger
	segmentMS  int64
	delay      time.Duration

	// injectable for tests; default to the audio package implementations
	normalize func(ctx context.Context, path string) (string, error)
	split     func(ctx context.Context, path string, maxMS int64) ([]audio.Segment, error)
}

// New creates a pipeline with the configured segment limits.
func New(recognizer recognition.Recognizer, sink audit.Logger, cfg config.PipelineConfig) *Pipeline {
	if sink == nil {
		sink = audit.Nop{}
	}
	segmentMS := int64(cfg.SegmentMS)
	if segmentMS <= 0 {
		segmentMS = audio.DefaultSegmentMS
	}
	delay := time.Duration(cfg.SegmentDelayMS) * time.Millisecond

	return &Pipeline{
		recognizer: recognizer,
		sink:       sink,
		segmentMS:  segmentMS,
		delay:      delay,
		normalize:  audio.Normalize,
		split:      audio.Split,
	}
}

// Run transcribes the recording at path. Segments are submitted strictly
// sequentially in index order; the first failure halts the run. userID is only
// used for audit side calls; the caller owns session correlation.
func (p *Pipeline) Run(ctx context.Context, path, userID string, progress ProgressFunc) (*Result, error) {
	start := time.Now()
	metrics.PipelineRunsTotal.Add(ctx, 1)

	normalized, err := p.normalize(ctx, path)
	if err != nil {
		return nil, err
	}
	if normalized != path {
		// the converted artifact belongs to this run
		defer removeQuietly(normalized)
	}

	stageStart := time.Now()
	segments, err := p.split(ctx, normalized, p.segmentMS)
	if err != nil {
		return nil, err
	}
	p.sink.Log(ctx, userID, fmt.Sprintf("segmentation produced %d segments in %.2fs",
		len(segments), time.Since(stageStart).Seconds()))

	// Sweep whatever is left on any exit path; segments already consumed in
	// the loop below are gone by then and removal is a no-op.
	defer func() {
		for _, seg := range segments {
			removeQuietly(seg.Path)
		}
	}()

	transcript, err := p.transcribeSequentially(ctx, segments, progress)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.PipelineRunDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Int("segments", len(segments))))
	p.sink.Log(ctx, userID, fmt.Sprintf("transcription of %d segments took %.2fs",
		len(segments), elapsed.Seconds()))

	return &Result{
		Transcript: transcript,
		Segments:   len(segments),
		Elapsed:    elapsed,
	}, nil
}

// transcribeSequentially submits one segment at a time in index order.
// Fragment order in the output matches segment order by construction.
func (p *Pipeline) transcribeSequentially(ctx context.Context, segments []audio.Segment, progress ProgressFunc) (string, error) {
	var sb strings.Builder

	for i, seg := range segments {
		segStart := time.Now()
		text, err := p.recognizer.Recognize(ctx, seg.Path)

		// The segment's backing file is released once its attempt completes,
		// success or failure, so storage never accumulates across the run.
		removeQuietly(seg.Path)

		metrics.SegmentDuration.Record(ctx, time.Since(segStart).Seconds())
		metrics.SegmentsTranscribedTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("failed", err != nil)))

		if err != nil {
			return "", &SegmentFailure{
				Index:   seg.Index,
				Total:   len(segments),
				Partial: strings.TrimSpace(sb.String()),
				Err:     err,
			}
		}

		sb.WriteString(text)
		sb.WriteString("\n")

		if progress != nil {
			progress(i+1, len(segments))
		}

		// courtesy throttle towards the recognition service
		if p.delay > 0 && i < len(segments)-1 {
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				// Index names the last segment actually attempted; the cause
				// records that the next one was never submitted.
				return "", &SegmentFailure{
					Index:   seg.Index,
					Total:   len(segments),
					Partial: strings.TrimSpace(sb.String()),
					Err:     fmt.Errorf("cancelled before segment %d: %w", seg.Index+2, ctx.Err()),
				}
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// removeQuietly deletes a temp artifact. Cleanup failures are logged but never
// escalate: they must not mask the run's primary error.
func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove temp artifact", "path", path, "error", err)
	}
}
