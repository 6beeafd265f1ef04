package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openminutes/scribe/internal/errors"
	"github.com/openminutes/scribe/internal/httpclient"
	"github.com/openminutes/scribe/internal/metrics"
	"github.com/openminutes/scribe/internal/services/oauth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Client submits raw audio bytes to the speech-recognition REST endpoint.
type Client struct {
	recognizeURL string
	tokens       *oauth.TokenSource
	httpClient   *http.Client
}

// NewClient creates a recognition client backed by the given token source.
func NewClient(recognizeURL string, tokens *oauth.TokenSource) *Client {
	return &Client{
		recognizeURL: recognizeURL,
		tokens:       tokens,
		httpClient:   httpclient.NewInstrumentedClient(3 * time.Minute),
	}
}

// recognizeResponse holds the service's result field, which is either a single
// string or a list of text fragments.
type recognizeResponse struct {
	Result json.RawMessage `json:"result"`
}

// Recognize sends the segment's audio bytes with a content type derived from
// its container format and returns the recognized text. Multiple returned
// fragments are joined with a single space.
func (c *Client) Recognize(ctx context.Context, audioPath string) (string, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{attribute.String("provider", "speech")}
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	contentType, err := ContentTypeFor(audioPath)
	if err != nil {
		return "", err
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", errors.NewTranscriptionError("failed to read segment file", "AUDIO_FILE_ERROR", err)
	}

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Speech"),
		"POST", c.recognizeURL, bytes.NewReader(audio))
	if err != nil {
		return "", errors.NewTranscriptionError("failed to create recognition request", "RECOGNITION_REQUEST_ERROR", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.NewTranscriptionError("failed to call recognition API", "RECOGNITION_API_ERROR", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewTranscriptionError("failed to read recognition response", "READ_RESPONSE_ERROR", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewTranscriptionStatusError(
			fmt.Sprintf("recognition API error (status %d): %s", resp.StatusCode, string(respBody)),
			"RECOGNITION_API_HTTP_ERROR", resp.StatusCode)
	}

	var recResp recognizeResponse
	if err := json.Unmarshal(respBody, &recResp); err != nil {
		return "", errors.NewTranscriptionError("failed to parse recognition response", "PARSE_RESPONSE_ERROR", err)
	}

	return joinResult(recResp.Result)
}

// joinResult accepts either a bare string or a list of fragments.
func joinResult(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}

	var fragments []string
	if err := json.Unmarshal(raw, &fragments); err == nil {
		return strings.Join(fragments, " "), nil
	}

	return "", errors.NewTranscriptionError("unexpected recognition result shape", "PARSE_RESPONSE_ERROR", nil)
}
