package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// Remote implements Engine by talking to a running generation runtime over
// HTTP. It accepts Server-Sent Events ("data:" lines) as well as runtimes
// that stream one raw JSON object per line.
type Remote struct {
	baseURL        string
	apiKey         string
	reqTimeout     time.Duration
	connectTimeout time.Duration
	httpClient     *http.Client
}

// NewRemote constructs a Remote engine client. reqTimeout bounds one whole
// generation (0 disables); connectTimeout bounds dialing.
func NewRemote(baseURL, apiKey string, reqTimeout, connectTimeout time.Duration) *Remote {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Client timeout stays 0: generations are long-lived streams, so all
	// deadlines are carried by the request context instead.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &Remote{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		reqTimeout:     reqTimeout,
		connectTimeout: connectTimeout,
		httpClient:     cli,
	}
}

func (e *Remote) Describe() string { return "remote(" + e.baseURL + ")" }

// generatePayload is the upstream request body. Extra sampling knobs are
// merged in at the top level, mirroring how the runtime flattens them.
func (e *Remote) generatePayload(prompt string, params SamplingParams, requestID string) ([]byte, error) {
	body := map[string]any{
		"request_id":      requestID,
		"prompt":          prompt,
		"stream":          true,
		"max_tokens":      params.MaxTokens,
		"use_beam_search": params.UseBeamSearch,
	}
	for k, v := range params.Extra {
		if _, reserved := body[k]; !reserved {
			body[k] = v
		}
	}
	return json.Marshal(body)
}

func (e *Remote) Generate(ctx context.Context, prompt string, params SamplingParams, requestID string) (ResultStream, error) {
	if e.httpClient == nil {
		return nil, errors.New("remote engine not initialized")
	}
	cancel := context.CancelFunc(func() {})
	if e.reqTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.reqTimeout)
	}
	body, err := e.generatePayload(prompt, params, requestID)
	if err != nil {
		cancel()
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, errors.New("engine http error: " + resp.Status + ": " + string(b))
	}
	return &remoteStream{
		ctx:    ctx,
		cancel: cancel,
		body:   resp.Body,
		r:      bufio.NewReader(resp.Body),
	}, nil
}

// Abort asks the runtime to drop a request. A 404 means the runtime no longer
// knows the id, which counts as success.
func (e *Remote) Abort(ctx context.Context, requestID string) error {
	if e.httpClient == nil {
		return errors.New("remote engine not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	body, err := json.Marshal(map[string]string{"request_id": requestID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/abort", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New("engine abort error: " + resp.Status + ": " + string(b))
	}
	return nil
}

// remoteFrame is one streamed upstream payload.
type remoteFrame struct {
	Prompt  string `json:"prompt"`
	Outputs []struct {
		Text string `json:"text"`
	} `json:"outputs"`
}

type remoteStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser
	r      *bufio.Reader
	done   bool
}

func (s *remoteStream) Recv() (Result, error) {
	if s.done {
		return Result{}, io.EOF
	}
	for {
		line, err := s.r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSpace(line)
			if line == "" {
				// heartbeats/keepalives
			} else {
				data := line
				if strings.HasPrefix(strings.ToLower(line), "data:") {
					data = strings.TrimSpace(line[len("data:"):])
				}
				if data == "[DONE]" {
					return Result{}, s.finish(nil)
				}
				var frame remoteFrame
				if jerr := json.Unmarshal([]byte(data), &frame); jerr == nil && len(frame.Outputs) > 0 {
					res := Result{Prompt: frame.Prompt, Outputs: make([]Output, 0, len(frame.Outputs))}
					for _, o := range frame.Outputs {
						res.Outputs = append(res.Outputs, Output{Text: o.Text})
					}
					return res, nil
				}
				log.Printf("engine=remote event=unknown_stream_line line=%q", line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Result{}, s.finish(nil)
			}
			if s.ctx.Err() != nil {
				return Result{}, s.finish(s.ctx.Err())
			}
			return Result{}, s.finish(err)
		}
	}
}

// finish closes the stream exactly once and pins the terminal error.
func (s *remoteStream) finish(err error) error {
	if !s.done {
		s.done = true
		_ = s.body.Close()
		s.cancel()
	}
	if err == nil {
		return io.EOF
	}
	return err
}
