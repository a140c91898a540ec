package genctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

// Client is a small HTTP client for a running hfserve instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client. No overall timeout is set on the underlying
// http.Client because streamed generations are long-lived; use the context.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 0},
	}
}

// Generate posts one request. In streaming mode onChunk is invoked per frame
// and the returned response is nil; otherwise the aggregated response is
// returned.
func (c *Client) Generate(ctx context.Context, model string, req types.GenerateRequest, onChunk func(types.StreamChunk) error) (*types.GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/api/generate/" + model
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	if req.Stream {
		sc := bufio.NewScanner(resp.Body)
		sc.Split(scanFrames)
		for sc.Scan() {
			var chunk types.StreamChunk
			if err := json.Unmarshal(sc.Bytes(), &chunk); err != nil {
				return nil, fmt.Errorf("bad stream frame: %w", err)
			}
			if onChunk != nil {
				if err := onChunk(chunk); err != nil {
					return nil, err
				}
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var out types.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return out, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, decodeError(resp)
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	return out, err
}

// Health fetches a plain-text probe endpoint (/healthz or /readyz).
func (c *Client) Health(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, strings.TrimSpace(string(b))), nil
}

// decodeError turns a non-200 response into an error, preferring the JSON
// error envelope when present.
func decodeError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var er types.ErrorResponse
	if err := json.Unmarshal(b, &er); err == nil && er.Error != "" {
		return fmt.Errorf("server: %s (%s)", er.Error, resp.Status)
	}
	return fmt.Errorf("server: %s: %s", resp.Status, strings.TrimSpace(string(b)))
}

// scanFrames is a bufio.SplitFunc for null-byte delimited frames.
func scanFrames(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		// trailing partial frame without delimiter
		return len(data), data, nil
	}
	return 0, nil, nil
}
