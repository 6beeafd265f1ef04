package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/openminutes/scribe/internal/errors"
)

// ffmpegBin is the transcoder binary. Overridable in tests.
var ffmpegBin = "ffmpeg"

// directlyUsable holds extensions the recognition service accepts as-is.
var directlyUsable = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".wav":  true,
}

// needsConversion holds extensions that must be transcoded to mp3 first.
var needsConversion = map[string]bool{
	".mp4": true,
	".m4a": true,
}

// Ext returns the lower-cased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsSupported reports whether the file's extension belongs to the directly
// usable set or the needs-conversion set.
func IsSupported(path string) bool {
	ext := Ext(path)
	return directlyUsable[ext] || needsConversion[ext]
}

// Normalize classifies the input file by extension and returns a path to audio
// the recognition service can decode. Directly usable files are returned
// unchanged; convertible containers are transcoded to mono 16 kHz mp3 written
// alongside the input. The caller owns cleanup of both the original and the
// converted artifact.
func Normalize(ctx context.Context, path string) (string, error) {
	ext := Ext(path)
	switch {
	case directlyUsable[ext]:
		return path, nil
	case needsConversion[ext]:
		return convertToMP3(ctx, path, ext)
	default:
		return "", errors.NewUnsupportedFormatError(ext)
	}
}

// convertToMP3 transcodes the input to mono 16 kHz mp3, the profile the
// recognition service expects.
func convertToMP3(ctx context.Context, path, ext string) (string, error) {
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".converted.mp3"

	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-y",
		"-i", path,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "mp3",
		out,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(out)
		return "", errors.NewConversionError(
			"failed to convert "+ext+" input to mp3: "+tail(string(output), 512), err)
	}
	return out, nil
}

// tail returns at most the last n bytes of s. ffmpeg puts the useful error at
// the end of a long banner.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
