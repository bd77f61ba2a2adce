// Package gateway is the typed client for the GenAI backend. Each persona
// lives under its own path prefix (/p1 customer ... /p7 returns) and every
// capability is one method taking a flat JSON payload.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"cymbal-assist-be/internal/pkg/logger"
)

var tracer = otel.Tracer("cymbal-assist-be/pkg/gateway")

type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  logger.ILogger
}

func NewClient(baseURL string, timeout time.Duration, log logger.ILogger) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// pathEscape joins escaped segments onto a route prefix.
func pathEscape(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// do sends one request and decodes the JSON body into out (when non-nil).
// Any failure, including non-2xx status, becomes a *BackendError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	raw, err := c.doRaw(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(op, 0, fmt.Errorf("unmarshal response: %w", err))
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, op, method, path string, in any) (raw []byte, err error) {
	ctx, span := tracer.Start(ctx, "gateway."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("http.route", path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op)
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, c.fail(op, 0, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, c.fail(op, 0, fmt.Errorf("create request: %w", err))
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, c.fail(op, 0, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(op, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(op, resp.StatusCode, fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(raw, 512)))
	}
	return raw, nil
}

func (c *Client) fail(op string, status int, cause error) error {
	if c.logger != nil {
		c.logger.Error("GATEWAY", "Backend call failed", map[string]interface{}{
			"op":     op,
			"status": status,
			"error":  cause.Error(),
		})
	}
	return &BackendError{Op: op, Status: status, Err: cause}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
