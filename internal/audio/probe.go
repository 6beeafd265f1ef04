package audio

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/openminutes/scribe/internal/errors"
)

// ffprobeBin is the media prober binary. Overridable in tests.
var ffprobeBin = "ffprobe"

// ProbeDurationMS returns the duration of the media file in milliseconds.
func ProbeDurationMS(ctx context.Context, path string) (int64, error) {
	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, errors.NewConversionError("failed to probe media duration", err)
	}

	return parseProbeDuration(string(output))
}

// parseProbeDuration converts ffprobe's fractional-seconds output to
// milliseconds, truncating sub-millisecond precision.
func parseProbeDuration(output string) (int64, error) {
	raw := strings.TrimSpace(output)
	if raw == "" || raw == "N/A" {
		return 0, errors.NewConversionError("media duration unavailable", nil)
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewConversionError("unparseable media duration "+strconv.Quote(raw), err)
	}
	if seconds < 0 {
		return 0, errors.NewConversionError("negative media duration", nil)
	}

	return int64(seconds * 1000), nil
}
