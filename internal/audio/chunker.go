package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/openminutes/scribe/internal/errors"
)

// DefaultSegmentMS is the default maximum segment duration. The recognition
// service rejects requests longer than a minute; 58s leaves headroom.
const DefaultSegmentMS int64 = 58000

// Segment is one bounded-duration slice of the normalized audio, exported as a
// self-contained mp3. The chunker owns the file until the segment is handed to
// the orchestrator, which disposes of it after the recognition attempt.
type Segment struct {
	Index      int
	StartMS    int64
	DurationMS int64
	Path       string
}

// span is a planned segment before extraction.
type span struct {
	startMS    int64
	durationMS int64
}

// planSpans walks a cursor from 0 to totalMS in steps of maxMS. The spans cover
// [0, totalMS) in order with no gaps or overlaps; the last one may be shorter.
// A non-positive total yields no spans.
func planSpans(totalMS, maxMS int64) []span {
	if totalMS <= 0 || maxMS <= 0 {
		return nil
	}

	spans := make([]span, 0, (totalMS+maxMS-1)/maxMS)
	for cursor := int64(0); cursor < totalMS; cursor += maxMS {
		d := totalMS - cursor
		if d > maxMS {
			d = maxMS
		}
		spans = append(spans, span{startMS: cursor, durationMS: d})
	}
	return spans
}

// Split divides the normalized audio file into segments of at most maxMS
// milliseconds each, re-encoded independently to mp3. Segment files are written
// alongside the input, named by their 0-based index so they can be reassembled
// by index alone. A zero-duration input yields an empty slice.
//
// On extraction failure, segments already written are removed before returning.
func Split(ctx context.Context, path string, maxMS int64) ([]Segment, error) {
	if maxMS <= 0 {
		maxMS = DefaultSegmentMS
	}

	totalMS, err := ProbeDurationMS(ctx, path)
	if err != nil {
		return nil, err
	}

	spans := planSpans(totalMS, maxMS)
	if len(spans) == 0 {
		return nil, nil
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	segments := make([]Segment, 0, len(spans))
	for i, sp := range spans {
		segPath := fmt.Sprintf("%s_part%d.mp3", stem, i)
		if err := extractSegment(ctx, path, segPath, sp.startMS, sp.durationMS); err != nil {
			for _, s := range segments {
				os.Remove(s.Path)
			}
			os.Remove(segPath)
			return nil, err
		}
		segments = append(segments, Segment{
			Index:      i,
			StartMS:    sp.startMS,
			DurationMS: sp.durationMS,
			Path:       segPath,
		})
	}

	return segments, nil
}

// extractSegment re-encodes one slice of the source as a standalone mp3.
// The -t argument clamps the output to the planned duration even when the
// source's frame boundaries carry indexing slop.
func extractSegment(ctx context.Context, src, dst string, startMS, durationMS int64) error {
	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-y",
		"-i", src,
		"-ss", formatTimestamp(startMS),
		"-t", formatTimestamp(durationMS),
		"-vn",
		"-acodec", "libmp3lame",
		"-ac", "1",
		"-ar", "16000",
		dst,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.NewConversionError(
			fmt.Sprintf("failed to export segment %s: %s", filepath.Base(dst), tail(string(output), 512)), err)
	}
	return nil
}

// formatTimestamp renders milliseconds as HH:MM:SS.mmm for ffmpeg -ss/-t.
func formatTimestamp(ms int64) string {
	h := ms / 3600000
	m := (ms % 3600000) / 60000
	s := (ms % 60000) / 1000
	frac := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}
