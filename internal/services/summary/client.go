// Package summary drives the text-generation service that turns a meeting
// transcript into a structured report. The service speaks the OpenAI
// chat-completions dialect behind the same OAuth gateway as recognition.
package summary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/openminutes/scribe/internal/errors"
	"github.com/openminutes/scribe/internal/httpclient"
	"github.com/openminutes/scribe/internal/metrics"
	"github.com/openminutes/scribe/internal/services/oauth"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultSystemPrompt is the standing instruction for meeting-transcript
// analysis when the caller does not supply a prompt of their own.
const DefaultSystemPrompt = `Analyze this meeting transcript and produce a structured report in a strictly formal, neutral style. The report must include:

Meeting date — state it at the top of the report.

Meeting topic — briefly identify the main subject of discussion.

Participants — list them if the information is available.

Key outcomes — lay out the main agenda items and the important conclusions the participants reached.

Agreements — list the agreements reached and concrete assignments, with owners and deadlines where stated.

Meeting assessment — give an objective assessment of the preparation, flow and results of the meeting.

Summary — close with an overall takeaway.

Direct quotes from participants may be used to support key conclusions. The report should be of moderate length: detailed enough, without redundant information. Format it as structured text or a list.`

// Usage reports the token counters returned by the text-generation service.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client calls the chat-completions endpoint with a per-call bearer token.
type Client struct {
	baseURL    string
	model      string
	tokens     *oauth.TokenSource
	httpClient *http.Client
}

// NewClient creates a summarization client. baseURL is the API root without
// the /chat/completions suffix.
func NewClient(baseURL, model string, tokens *oauth.TokenSource) *Client {
	return &Client{
		baseURL:    baseURL,
		model:      model,
		tokens:     tokens,
		httpClient: httpclient.NewInstrumentedClient(3 * time.Minute),
	}
}

// Summarize sends the prompt and transcript as a single user message and
// returns the generated report plus the service's token usage.
func (c *Client) Summarize(ctx context.Context, systemPrompt, transcript string) (string, Usage, error) {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		attrs := []attribute.KeyValue{attribute.String("provider", "summary")}
		metrics.ExternalAPIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		metrics.ExternalAPICallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", Usage{}, err
	}

	cfg := openai.DefaultConfig(token)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.httpClient
	api := openai.NewClientWithConfig(cfg)

	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	prompt := strings.TrimSpace(systemPrompt) + "\n\n" + strings.TrimSpace(transcript)

	resp, err := api.CreateChatCompletion(httpclient.WithProvider(ctx, "Summary"), openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 1,
		TopP:        0.9,
		N:           1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", Usage{}, &apperrors.AppError{
				Type:          apperrors.ErrorTypeDownstream,
				Message:       fmt.Sprintf("text-generation API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message),
				StatusCode:    apiErr.HTTPStatusCode,
				ErrorCode:     "SUMMARY_API_HTTP_ERROR",
				IsOperational: true,
				Err:           err,
			}
		}
		return "", Usage{}, apperrors.NewDownstreamError("failed to call text-generation API", "SUMMARY_API_ERROR", err)
	}

	if len(resp.Choices) == 0 {
		return "", Usage{}, apperrors.NewDownstreamError("text-generation service returned no choices", "SUMMARY_EMPTY_RESPONSE", nil)
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	metrics.SummaryTokensTotal.Add(ctx, int64(usage.TotalTokens))

	return resp.Choices[0].Message.Content, usage, nil
}
