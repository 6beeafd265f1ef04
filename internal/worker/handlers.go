package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/openminutes/scribe/internal/pipeline"
	"github.com/openminutes/scribe/internal/services/summary"
	"github.com/openminutes/scribe/internal/textsplit"
)

// JobTracker records job lifecycle transitions. *jobstore.Store satisfies it.
type JobTracker interface {
	MarkRunning(ctx context.Context, id, step string) error
	UpdateStep(ctx context.Context, id, step string) error
	UpdateProgress(ctx context.Context, id string, done, total int) error
	MarkFailed(ctx context.Context, id, errorMsg string) error
	MarkDone(ctx context.Context, id string) error
}

// Runner executes one transcription run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, path, userID string, progress pipeline.ProgressFunc) (*pipeline.Result, error)
}

// Summarizer condenses a transcript. *summary.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, transcript string) (string, summary.Usage, error)
}

// Sink is where produced text goes. *audit.Client satisfies it.
type Sink interface {
	Log(ctx context.Context, userID, action string)
	Deliver(ctx context.Context, userID, kind, text string) error
}

// TranscriptionProcessor drives a transcription job end to end: pipeline run,
// transcript delivery, summary generation, summary delivery.
type TranscriptionProcessor struct {
	jobs       JobTracker
	pipeline   Runner
	summarizer Summarizer
	sink       Sink
	maxChunk   int
	uploadDir  string
}

func NewTranscriptionProcessor(
	jobs JobTracker,
	runner Runner,
	summarizer Summarizer,
	sink Sink,
	maxChunk int,
	uploadDir string,
) *TranscriptionProcessor {
	if maxChunk <= 0 {
		maxChunk = textsplit.DefaultMaxLength
	}
	return &TranscriptionProcessor{
		jobs:       jobs,
		pipeline:   runner,
		summarizer: summarizer,
		sink:       sink,
		maxChunk:   maxChunk,
		uploadDir:  uploadDir,
	}
}

func (p *TranscriptionProcessor) HandleTranscribeAudio(ctx context.Context, t *asynq.Task) error {
	var payload TranscribeAudioPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	slog.Info("Processing transcription", "job_id", payload.JobID, "file", payload.FilePath)

	// The upload is consumed exactly once, whatever the outcome.
	defer func() {
		if err := os.Remove(payload.FilePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove upload", "path", payload.FilePath, "error", err)
		}
	}()

	if err := p.jobs.MarkRunning(ctx, payload.JobID, "Transcribing audio..."); err != nil {
		slog.Error("Failed to mark job running", "job_id", payload.JobID, "error", err)
	}
	p.sink.Log(ctx, payload.UserID, "transcription started")

	result, err := p.pipeline.Run(ctx, payload.FilePath, payload.UserID, func(done, total int) {
		if dbErr := p.jobs.UpdateProgress(ctx, payload.JobID, done, total); dbErr != nil {
			slog.Error("Failed to update progress", "job_id", payload.JobID, "error", dbErr)
		}
	})
	if err != nil {
		var segErr *pipeline.SegmentFailure
		if errors.As(err, &segErr) {
			p.markFailed(ctx, payload.JobID, payload.UserID,
				fmt.Sprintf("Transcription halted at segment %d of %d: %v",
					segErr.Index+1, segErr.Total, segErr.Err))
		} else {
			p.markFailed(ctx, payload.JobID, payload.UserID,
				fmt.Sprintf("Transcription failed: %v", err))
		}
		return err
	}

	if result.Transcript == "" {
		p.updateStep(ctx, payload.JobID, "No speech recognized")
		if err := p.jobs.MarkDone(ctx, payload.JobID); err != nil {
			slog.Error("Failed to mark job done", "job_id", payload.JobID, "error", err)
		}
		return nil
	}

	p.updateStep(ctx, payload.JobID, "Delivering transcript...")
	if err := p.deliverChunks(ctx, payload.UserID, "transcript", result.Transcript); err != nil {
		p.markFailed(ctx, payload.JobID, payload.UserID,
			fmt.Sprintf("Transcript delivery failed: %v", err))
		return err
	}

	if p.summarizer != nil {
		p.updateStep(ctx, payload.JobID, "Generating summary...")

		summaryText, usage, err := p.summarizer.Summarize(ctx, payload.Prompt, result.Transcript)
		if err != nil {
			p.markFailed(ctx, payload.JobID, payload.UserID,
				fmt.Sprintf("Summary generation failed: %v", err))
			return err
		}
		slog.Info("Summary generated", "job_id", payload.JobID, "tokens", usage.TotalTokens)

		if err := p.deliverChunks(ctx, payload.UserID, "summary", summaryText); err != nil {
			p.markFailed(ctx, payload.JobID, payload.UserID,
				fmt.Sprintf("Summary delivery failed: %v", err))
			return err
		}
	}

	if err := p.jobs.MarkDone(ctx, payload.JobID); err != nil {
		slog.Error("Failed to mark job done", "job_id", payload.JobID, "error", err)
	}
	p.sink.Log(ctx, payload.UserID, fmt.Sprintf("transcription completed, %d segments", result.Segments))

	return nil
}

// HandleCleanupUploads removes upload files older than a day. Uploads are
// normally consumed by their job; this sweeps what crashes left behind.
func (p *TranscriptionProcessor) HandleCleanupUploads(ctx context.Context, t *asynq.Task) error {
	if p.uploadDir == "" {
		return nil
	}

	entries, err := os.ReadDir(p.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || info.IsDir() {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(p.uploadDir, entry.Name())); err == nil {
				removed++
			}
		}
	}

	slog.Info("Upload cleanup complete", "removed", removed)
	return nil
}

// deliverChunks splits text to the delivery size limit and pushes the chunks
// in order, stopping at the first failure.
func (p *TranscriptionProcessor) deliverChunks(ctx context.Context, userID, kind, text string) error {
	for _, chunk := range textsplit.Split(text, p.maxChunk) {
		if err := p.sink.Deliver(ctx, userID, kind, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (p *TranscriptionProcessor) updateStep(ctx context.Context, jobID, message string) {
	slog.Info("Progress update", "job_id", jobID, "message", message)

	if err := p.jobs.UpdateStep(ctx, jobID, message); err != nil {
		slog.Error("Failed to update job step", "job_id", jobID, "error", err)
	}
}

func (p *TranscriptionProcessor) markFailed(ctx context.Context, jobID, userID, errorMsg string) {
	slog.Error("Job failed", "job_id", jobID, "error", errorMsg)

	if err := p.jobs.MarkFailed(ctx, jobID, errorMsg); err != nil {
		slog.Error("Failed to mark job failed", "job_id", jobID, "error", err)
	}
	p.sink.Log(ctx, userID, "transcription failed")
}
