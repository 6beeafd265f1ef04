package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/openminutes/scribe/internal/audio"
	"github.com/openminutes/scribe/internal/config"
	apperrors "github.com/openminutes/scribe/internal/errors"
	"github.com/openminutes/scribe/internal/jobstore"
	"github.com/openminutes/scribe/internal/middleware"
	"github.com/openminutes/scribe/internal/worker"
)

// maxUploadBytes caps one recording upload. Two hours of speech-quality mp3
// stays well under this.
const maxUploadBytes = 512 << 20

// JobStore is the subset of jobstore.Store the API needs.
type JobStore interface {
	Create(ctx context.Context, id, userID string) error
	Get(ctx context.Context, id string) (*jobstore.Job, error)
}

// Enqueuer submits background tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	cfg   *config.Config
	jobs  JobStore
	queue Enqueuer
}

func NewServer(cfg *config.Config, jobs JobStore, queue Enqueuer) *Server {
	return &Server{
		cfg:   cfg,
		jobs:  jobs,
		queue: queue,
	}
}

type CreateTranscriptionResponse struct {
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
}

// HandleCreateTranscription accepts a multipart recording upload, validates
// its format, and enqueues a transcription job. Unsupported formats are
// rejected here, before any file lands in the upload directory.
func (s *Server) HandleCreateTranscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := audio.Ext(header.Filename)
	if !audio.IsSupported(header.Filename) {
		writeAppError(w, apperrors.NewUnsupportedFormatError(ext))
		return
	}

	prompt := r.FormValue("prompt")
	jobID := uuid.New().String()

	uploadPath, err := s.saveUpload(file, jobID, ext)
	if err != nil {
		http.Error(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	if err := s.jobs.Create(r.Context(), jobID, userID); err != nil {
		os.Remove(uploadPath)
		http.Error(w, "Failed to create transcription job", http.StatusInternalServerError)
		return
	}

	task, err := worker.NewTranscribeAudioTask(worker.TranscribeAudioPayload{
		JobID:    jobID,
		UserID:   userID,
		FilePath: uploadPath,
		Prompt:   prompt,
	})
	if err != nil {
		os.Remove(uploadPath)
		http.Error(w, "Failed to create task", http.StatusInternalServerError)
		return
	}

	if _, err := s.queue.Enqueue(task); err != nil {
		os.Remove(uploadPath)
		http.Error(w, "Failed to enqueue task", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(CreateTranscriptionResponse{
		JobID:    jobID,
		FileName: header.Filename,
	})
}

// saveUpload copies the upload into shared storage under the job's ID, so
// concurrent uploads of equally named files never collide.
func (s *Server) saveUpload(file io.Reader, jobID, ext string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.cfg.UploadDir, jobID+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

type TranscriptionStatusResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	ProgressStep  string `json:"progress_step,omitempty"`
	SegmentsDone  int    `json:"segments_done"`
	SegmentsTotal int    `json:"segments_total"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *Server) HandleTranscriptionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		http.Error(w, "job_id is required", http.StatusBadRequest)
		return
	}

	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeNotFound {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch job", http.StatusInternalServerError)
		return
	}

	if job.UserID != userID {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TranscriptionStatusResponse{
		ID:            job.ID,
		Status:        job.Status,
		ProgressStep:  job.ProgressStep,
		SegmentsDone:  job.SegmentsDone,
		SegmentsTotal: job.SegmentsTotal,
		Error:         job.Error,
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.Format(time.RFC3339),
	})
}

type errorBody struct {
	Error struct {
		Type     string `json:"type"`
		Code     string `json:"code"`
		Message  string `json:"message"`
		Recovery string `json:"recovery,omitempty"`
	} `json:"error"`
}

func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	var body errorBody
	body.Error.Type = string(appErr.Type)
	body.Error.Code = appErr.ErrorCode
	body.Error.Message = appErr.Message
	body.Error.Recovery = appErr.Recovery

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	json.NewEncoder(w).Encode(body)
}
