package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Health status values reported by GET /health.
const (
	StatusAlive = "alive"
	StatusDead  = "dead"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Active bool   `json:"active"`
}

// Serving reports whether the node claims to be alive and active.
func (h HealthResponse) Serving() bool {
	return h.Status == StatusAlive && h.Active
}

// StatusError is returned when a peer answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %s: %d", e.URL, e.Code)
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// BaseURL normalizes a peer address: host:port gains an http:// scheme and
// trailing slashes are dropped.
func BaseURL(addr string) string {
	url := addr
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		url = "http://" + addr
	}
	return strings.TrimRight(url, "/")
}

// PostJSON sends body as JSON and decodes the response into out when out is
// non-nil and the response has content.
func PostJSON(ctx context.Context, url string, body any, out any) error {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = do(httpClient, req, out)
	return err
}

// GetJSON issues a GET and decodes the response into out. It returns the
// HTTP status code; a 204 leaves out untouched.
func GetJSON(ctx context.Context, url string, out any) (int, error) {
	return GetJSONWith(ctx, httpClient, url, out)
}

// GetJSONWith is GetJSON with a caller-supplied client.
func GetJSONWith(ctx context.Context, client *http.Client, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	return do(client, req, out)
}

func do(client *http.Client, req *http.Request, out any) (int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return resp.StatusCode, &StatusError{URL: req.URL.String(), Code: resp.StatusCode}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}

// CheckHealth probes {base}/health and returns an error unless the peer is
// reachable and reports itself alive and active.
func CheckHealth(ctx context.Context, client *http.Client, base string) error {
	var health HealthResponse
	if _, err := GetJSONWith(ctx, client, BaseURL(base)+"/health", &health); err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	if !health.Serving() {
		return fmt.Errorf("peer reports status=%q active=%t", health.Status, health.Active)
	}
	return nil
}
