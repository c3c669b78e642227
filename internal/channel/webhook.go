// ABOUTME: Webhook reply channel for webhook://<url> URIs.
// ABOUTME: Delivery is an HTTP POST of the JSON payload; non-2xx surfaces as an error.

package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const webhookScheme = "webhook://"

// DefaultWebhookTimeout bounds each delivery POST.
const DefaultWebhookTimeout = 30 * time.Second

// WebhookFactory builds channels that POST messages to an HTTP endpoint.
// Everything after the scheme prefix is the literal destination URL,
// including its own scheme (webhook://https://example.com/cb).
type WebhookFactory struct {
	client  *http.Client
	headers map[string]string
}

// NewWebhookFactory creates a factory with the given request timeout and
// default headers applied to every delivery. A zero timeout uses
// DefaultWebhookTimeout.
func NewWebhookFactory(timeout time.Duration, headers map[string]string) *WebhookFactory {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &WebhookFactory{
		client:  &http.Client{Timeout: timeout},
		headers: headers,
	}
}

// Matches reports whether the URI uses the webhook:// scheme.
func (f *WebhookFactory) Matches(uri string) bool {
	return strings.HasPrefix(uri, webhookScheme)
}

// Create builds a channel posting to the URL embedded in the URI.
func (f *WebhookFactory) Create(uri string) (Channel, error) {
	url := strings.TrimPrefix(uri, webhookScheme)
	if url == "" {
		return nil, errors.New("webhook uri has no destination url")
	}
	return &webhookChannel{client: f.client, url: url, headers: f.headers}, nil
}

type webhookChannel struct {
	client  *http.Client
	url     string
	headers map[string]string
}

func (c *webhookChannel) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// read a little of the body for the error message
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook %s returned status %d: %s", c.url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
