// Package jobstore persists transcription job state in Postgres. Only status
// and progress live here; transcripts and audio are never written to the
// database, they flow straight through to their delivery targets.
package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/openminutes/scribe/internal/errors"
)

const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusFailed  = "failed"
	StatusDone    = "done"
)

// Job is one transcription request as tracked across its lifetime.
type Job struct {
	ID            string
	UserID        string
	Status        string
	ProgressStep  string
	SegmentsDone  int
	SegmentsTotal int
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPool opens a pgx pool with tracing enabled.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	return pgxpool.NewWithConfig(ctx, config)
}

// Store reads and writes transcription jobs.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the jobs table if it does not exist. Called once at
// startup by both the API server and the worker.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transcription_jobs (
			id             UUID PRIMARY KEY,
			user_id        TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'pending',
			progress_step  TEXT NOT NULL DEFAULT '',
			segments_done  INT  NOT NULL DEFAULT 0,
			segments_total INT  NOT NULL DEFAULT 0,
			error          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// Create registers a new pending job.
func (s *Store) Create(ctx context.Context, id, userID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transcription_jobs (id, user_id) VALUES ($1, $2)`,
		id, userID)
	return err
}

// Get returns the job, or a not-found error the API layer can map to 404.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, status, progress_step, segments_done, segments_total,
		       error, created_at, updated_at
		FROM transcription_jobs WHERE id = $1`, id).
		Scan(&job.ID, &job.UserID, &job.Status, &job.ProgressStep,
			&job.SegmentsDone, &job.SegmentsTotal, &job.Error,
			&job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("transcription job not found", "JOB_NOT_FOUND",
			"Check the job ID returned when the transcription was submitted")
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkRunning transitions the job to running and records the current stage.
func (s *Store) MarkRunning(ctx context.Context, id, step string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transcription_jobs
		SET status = $2, progress_step = $3, updated_at = now()
		WHERE id = $1`, id, StatusRunning, step)
	return err
}

// UpdateStep records the current stage without changing status.
func (s *Store) UpdateStep(ctx context.Context, id, step string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transcription_jobs
		SET progress_step = $2, updated_at = now()
		WHERE id = $1`, id, step)
	return err
}

// UpdateProgress records per-segment completion counts.
func (s *Store) UpdateProgress(ctx context.Context, id string, done, total int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transcription_jobs
		SET segments_done = $2, segments_total = $3, updated_at = now()
		WHERE id = $1`, id, done, total)
	return err
}

// MarkFailed records the terminal failure state and its reason.
func (s *Store) MarkFailed(ctx context.Context, id, errorMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transcription_jobs
		SET status = $2, error = $3, updated_at = now()
		WHERE id = $1`, id, StatusFailed, errorMsg)
	return err
}

// MarkDone records successful completion.
func (s *Store) MarkDone(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transcription_jobs
		SET status = $2, progress_step = 'completed', updated_at = now()
		WHERE id = $1`, id, StatusDone)
	return err
}
