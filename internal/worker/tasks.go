package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeTranscribeAudio = "transcribe:audio"
	TypeCleanupUploads  = "cleanup:uploads"
)

// TranscribeAudioPayload is the payload for transcription tasks. FilePath
// points at the uploaded recording on shared storage; the worker owns the
// file from the moment the task is enqueued.
type TranscribeAudioPayload struct {
	JobID    string `json:"job_id"`
	UserID   string `json:"user_id"`
	FilePath string `json:"file_path"`
	Prompt   string `json:"prompt,omitempty"`
}

// NewTranscribeAudioTask creates a new transcription task. Retries are
// disabled: a failed run leaves the job in a terminal failed state, and the
// uploaded file is gone by then.
func NewTranscribeAudioTask(payload TranscribeAudioPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTranscribeAudio, data, asynq.MaxRetry(0)), nil
}

// NewCleanupUploadsTask creates a task that sweeps orphaned upload files.
func NewCleanupUploadsTask() *asynq.Task {
	return asynq.NewTask(TypeCleanupUploads, nil)
}
