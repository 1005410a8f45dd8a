// Package tools implements the capabilities exposed to the agent loop:
// corpus search, Google calendar and contacts, email drafting, and places
// lookup. Every Execute returns a JSON payload the model reads directly.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-context-engine/pkg/provider"
)

const (
	requestTimeout = 10 * time.Second
	retryBackoff   = 800 * time.Millisecond
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// doJSON issues one HTTP request with an optional bearer token and JSON
// body, retrying once on 429/5xx. A 401 maps to the reconnect error so the
// loop can tell the user to re-link the account.
func doJSON(ctx context.Context, client *http.Client, method string, rawURL string, token string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempt := func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return client.Do(req)
	}

	res, err := attempt()
	if err == nil && retryable(res.StatusCode) {
		res.Body.Close()
		time.Sleep(retryBackoff)
		res, err = attempt()
	}
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: http 401", provider.ErrReconnectRequired)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", res.StatusCode, snippet(string(data), 200))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func stringListArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// errorPayloadJSON reports a recoverable domain failure to the model as a
// normal tool result, so the agent can correct course instead of giving up.
func errorPayloadJSON(message string, hint string) string {
	return marshalPayload(map[string]string{"error": message, "hint": hint})
}

func unmarshalPayload(payload string, out interface{}) error {
	return json.Unmarshal([]byte(payload), out)
}

func marshalPayload(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `{"error":"internal encoding failure"}`
	}
	return string(data)
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return s
}
