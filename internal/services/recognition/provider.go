package recognition

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/openminutes/scribe/internal/errors"
)

// Recognizer converts one audio file into recognized text. Implementations
// make a single-shot call with no internal retry.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) (string, error)
}

// ContentTypeFor derives the request content type from the file extension.
// Only the container formats the recognition service decodes are accepted.
func ContentTypeFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ogg":
		return "audio/ogg", nil
	case ".mp3", ".mpeg":
		return "audio/mpeg", nil
	case ".wav":
		return "audio/wav", nil
	default:
		return "", errors.NewTranscriptionError(
			"no recognition content type for "+filepath.Ext(path), "CONTENT_TYPE_ERROR", nil)
	}
}
