package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/openminutes/scribe/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub installs a fake executable and returns its path.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub.sh")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755)
	require.NoError(t, err)
	return path
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"meeting.mp3", true},
		{"meeting.FLAC", true},
		{"voice.ogg", true},
		{"call.wav", true},
		{"recording.mp4", true},
		{"memo.m4a", true},
		{"stream.aac", false},
		{"notes.txt", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.path))
		})
	}
}

func TestNormalize_DirectlyUsable(t *testing.T) {
	got, err := Normalize(context.Background(), "/tmp/meeting.mp3")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/meeting.mp3", got)
}

func TestNormalize_UnsupportedFormat(t *testing.T) {
	_, err := Normalize(context.Background(), "/tmp/stream.aac")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *AppError, got %T", err)
	assert.Equal(t, apperrors.ErrorTypeUnsupportedFormat, appErr.Type)
	assert.Contains(t, appErr.Message, ".aac")
}

func TestNormalize_Converts(t *testing.T) {
	// Stub transcoder: create the output file (last argument).
	stub := writeStub(t, `for a; do last=$a; done
echo converted > "$last"`)
	orig := ffmpegBin
	ffmpegBin = stub
	defer func() { ffmpegBin = orig }()

	in := filepath.Join(t.TempDir(), "recording.mp4")
	require.NoError(t, os.WriteFile(in, []byte("fake video"), 0644))

	got, err := Normalize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(in), "recording.converted.mp3"), got)

	_, err = os.Stat(got)
	assert.NoError(t, err, "converted artifact should exist")
}

func TestNormalize_ConversionFailure(t *testing.T) {
	stub := writeStub(t, `echo "boom" >&2
exit 1`)
	orig := ffmpegBin
	ffmpegBin = stub
	defer func() { ffmpegBin = orig }()

	in := filepath.Join(t.TempDir(), "recording.m4a")
	require.NoError(t, os.WriteFile(in, []byte("fake audio"), 0644))

	_, err := Normalize(context.Background(), in)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrorTypeConversion, appErr.Type)

	// Failed conversions must not leave a partial artifact behind
	_, statErr := os.Stat(filepath.Join(filepath.Dir(in), "recording.converted.mp3"))
	assert.True(t, os.IsNotExist(statErr))
}
