// Package webhook posts text messages to incoming webhooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/linkerlin/mentiondigest/internal/metrics"
)

// maxBodyBytes caps how much of a response body is kept.
const maxBodyBytes = 1024

// Delivery is the outcome of one post.
type Delivery struct {
	StatusCode int
	Body       string // response body, truncated to 1 KiB
	Err        error  // transport or encoding failure
}

// OK reports whether the webhook accepted the message.
func (d Delivery) OK() bool {
	return d.Err == nil && d.StatusCode == http.StatusOK
}

// Poster sends messages to webhook URLs.
type Poster struct {
	httpClient *http.Client
}

// NewPoster creates a Poster. A nil client gets a 30s timeout default.
func NewPoster(hc *http.Client) *Poster {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Poster{httpClient: hc}
}

type payload struct {
	Text string `json:"text"`
}

// Post sends text to endpoint. Failures are logged and reported on the
// returned Delivery, never as a panic. Errors never carry the endpoint, which
// embeds the webhook secret.
func (p *Poster) Post(ctx context.Context, endpoint, text string) Delivery {
	d := p.post(ctx, endpoint, text)
	switch {
	case d.Err != nil:
		metrics.WebhookDeliveriesTotal.WithLabelValues("transport_error").Inc()
		slog.Error("webhook delivery failed", "err", d.Err)
	case !d.OK():
		metrics.WebhookDeliveriesTotal.WithLabelValues("rejected").Inc()
		slog.Error("webhook rejected message", "status", d.StatusCode, "body", d.Body)
	default:
		metrics.WebhookDeliveriesTotal.WithLabelValues("ok").Inc()
		slog.Info("webhook message delivered", "status", d.StatusCode, "bytes", len(text))
	}
	return d
}

func (p *Poster) post(ctx context.Context, endpoint, text string) Delivery {
	body, err := json.Marshal(payload{Text: text})
	if err != nil {
		return Delivery{Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Delivery{Err: fmt.Errorf("failed to create request: %w", redact(err))}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Delivery{Err: fmt.Errorf("failed to send request: %w", redact(err))}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	return Delivery{StatusCode: resp.StatusCode, Body: string(respBody)}
}

// redact drops the URL from a *url.Error and keeps its cause.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
