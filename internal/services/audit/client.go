// Package audit forwards user actions and delivery text to the external
// records service. Calls are fire-and-forget: the pipeline never blocks on, or
// fails because of, the audit sink.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openminutes/scribe/internal/httpclient"
)

// Logger is the narrow sink interface the pipeline depends on.
type Logger interface {
	Log(ctx context.Context, userID, action string)
}

// Deliverer pushes user-facing text chunks to the records service. Unlike Log
// it is synchronous and ordered: chunks of one transcript must arrive in
// sequence, and a dropped chunk means lost output, so failures surface.
type Deliverer interface {
	Deliver(ctx context.Context, userID, kind, text string) error
}

// Nop discards every record. Used when no sink is configured.
type Nop struct{}

func (Nop) Log(ctx context.Context, userID, action string) {}

func (Nop) Deliver(ctx context.Context, userID, kind, text string) error { return nil }

// Client writes records to an Airtable-style records endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	wg sync.WaitGroup
}

// NewClient creates an audit client. An empty baseURL disables the sink.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpclient.NewInstrumentedClient(10 * time.Second),
	}
}

type record struct {
	Fields map[string]string `json:"fields"`
}

type recordsPayload struct {
	Records []record `json:"records"`
}

// Log submits the record in the background. Failures are logged and dropped;
// the sink must never surface an error into the pipeline's failure path.
func (c *Client) Log(ctx context.Context, userID, action string) {
	if c.baseURL == "" {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		// Detached from the caller's context so a finished pipeline run
		// does not cancel an in-flight audit write.
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := c.send(sendCtx, map[string]string{
			"UserID": userID,
			"Action": action,
		}); err != nil {
			slog.Warn("audit record dropped", "user_id", userID, "error", err)
		}
	}()
}

// Deliver writes one text chunk and waits for the result.
func (c *Client) Deliver(ctx context.Context, userID, kind, text string) error {
	if c.baseURL == "" {
		return nil
	}
	return c.send(ctx, map[string]string{
		"UserID": userID,
		"Kind":   kind,
		"Text":   text,
	})
}

// Flush waits for in-flight records. Called on shutdown and in tests.
func (c *Client) Flush() {
	c.wg.Wait()
}

func (c *Client) send(ctx context.Context, fields map[string]string) error {
	payload := recordsPayload{
		Records: []record{{Fields: fields}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "Audit"),
		"POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("records endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
