package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chipinfinity/checkout-api/telemetry"
	"go.uber.org/zap"
)

const maxBodyExcerpt = 600

// httpJSON is the shared HTTP plumbing for providers: per-call timeout,
// JSON encode/decode, error shaping, gateway metrics.
type httpJSON struct {
	hc       *http.Client
	log      *zap.Logger
	provider string
}

func newHTTPJSON(provider string, timeout time.Duration, log *zap.Logger) httpJSON {
	return httpJSON{
		hc:       &http.Client{Timeout: timeout},
		log:      log,
		provider: provider,
	}
}

// do performs one request and decodes the body into a generic document.
// Non-2xx responses and bodies carrying an "error" discriminator come back
// as *Error with the upstream status preserved.
func (c httpJSON) do(ctx context.Context, operation, method, url string, headers map[string]string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		telemetry.ObserveGatewayRequest(c.provider, operation, "network_error", time.Since(start))
		return nil, fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		telemetry.ObserveGatewayRequest(c.provider, operation, "network_error", time.Since(start))
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}

	var doc map[string]any
	decodeErr := json.Unmarshal(raw, &doc)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || hasErrorDiscriminator(doc) {
		telemetry.ObserveGatewayRequest(c.provider, operation, "upstream_error", time.Since(start))
		c.log.Warn("gateway rejected request",
			zap.String("provider", c.provider),
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(doc),
			Body:       truncate(string(raw), maxBodyExcerpt),
		}
	}
	if decodeErr != nil {
		telemetry.ObserveGatewayRequest(c.provider, operation, "upstream_error", time.Since(start))
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    "unparseable gateway response",
			Body:       truncate(string(raw), maxBodyExcerpt),
		}
	}

	telemetry.ObserveGatewayRequest(c.provider, operation, "ok", time.Since(start))
	return doc, nil
}

func hasErrorDiscriminator(doc map[string]any) bool {
	if doc == nil {
		return false
	}
	if v, ok := doc["error"]; ok && v != nil {
		if s, isStr := v.(string); !isStr || s != "" {
			return true
		}
	}
	return false
}

func upstreamMessage(doc map[string]any) string {
	for _, key := range []string{"message", "error"} {
		if s, ok := doc[key].(string); ok && s != "" {
			return s
		}
	}
	return "payment gateway error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// stringField probes a decoded document for the first non-empty string among
// the given alias keys (gateways rename identifier fields across versions).
func stringField(doc map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := doc[alias]; ok {
			switch t := v.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					return s
				}
			case float64:
				// numeric ids show up on some gateway versions
				return fmt.Sprintf("%.0f", t)
			}
		}
	}
	return ""
}

func numberField(doc map[string]any, aliases ...string) int64 {
	for _, alias := range aliases {
		if v, ok := doc[alias].(float64); ok {
			return int64(v)
		}
	}
	return 0
}
