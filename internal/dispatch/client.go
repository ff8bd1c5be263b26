package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/renewalwatch/backend/internal/model"
)

// maxResponseBody caps how much of a webhook reply is kept on the log.
const maxResponseBody = 1024

// Client POSTs JSON payloads with a bounded timeout.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// PostJSON sends payload once. Any 2xx is Sent; everything else is Failed
// with whatever status and body came back.
func (c *Client) PostJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return failed(fmt.Errorf("encode payload: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("User-Agent", "RenewalWatch-Alerts/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return failed(fmt.Errorf("webhook request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	code := resp.StatusCode
	text := string(raw)

	result := Result{ResponseCode: &code, ResponseBody: &text}
	if code >= 200 && code < 300 {
		result.Status = model.AlertStatusSent
		return result
	}
	result.Status = model.AlertStatusFailed
	result.Err = fmt.Errorf("webhook returned non-2xx status: %d", code)
	return result
}
