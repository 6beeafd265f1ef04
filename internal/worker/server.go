package worker

import (
	"github.com/hibiken/asynq"
)

// NewServer creates an Asynq server for processing transcription tasks.
// Concurrency stays low: each run holds segment files on disk and drives a
// rate-limited recognition API.
func NewServer(redisURL string) *asynq.Server {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		panic("failed to parse Redis URL: " + err.Error())
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
		},
	)
}
