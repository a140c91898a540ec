package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tabbas97/hf-codecomplete-server/internal/engine"
	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

func newTestService(t *testing.T, eng engine.Engine) *Service {
	t.Helper()
	svc := New(eng)
	t.Cleanup(svc.Close)
	return svc
}

func testRequest(stream, echo bool) *Request {
	return &Request{
		ID:           "req-1",
		Prompt:       "Hello",
		Sampling:     engine.SamplingParams{MaxTokens: 5, UseBeamSearch: true},
		Stream:       stream,
		EchoFullText: echo,
	}
}

func TestGenerate_NonStreaming_SingleResult(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{result("Hello", " world")}}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	if err := svc.Generate(context.Background(), testRequest(false, false), &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	var resp types.GenerateResponse
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.GeneratedText != " world" || resp.Status != 200 {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestGenerate_NonStreaming_EchoFullText(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{result("Hello", " world")}}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	if err := svc.Generate(context.Background(), testRequest(false, true), &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	var resp types.GenerateResponse
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.GeneratedText != "Hello world" {
		t.Fatalf("generated_text=%q", resp.GeneratedText)
	}
}

func TestGenerate_NonStreaming_KeepsOnlyLastResult(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{
		result("p", " a"),
		result("p", " ab", " ax"),
		result("p", " abc", " axy"),
	}}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	if err := svc.Generate(context.Background(), testRequest(false, false), &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	var resp types.GenerateResponse
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	// first candidate of the final result only
	if resp.GeneratedText != " abc" {
		t.Fatalf("generated_text=%q", resp.GeneratedText)
	}
}

func TestGenerate_NonStreaming_DisconnectAborts(t *testing.T) {
	eng := &fakeEngine{
		results:    []engine.Result{result("Hello", " wor")},
		blockAtEnd: true,
		yielded:    make(chan struct{}, 1),
	}
	svc := newTestService(t, eng)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-eng.yielded
		cancel()
	}()
	var buf bytes.Buffer
	err := svc.Generate(ctx, testRequest(false, false), &buf, nil)
	if !IsClientDisconnected(err) {
		t.Fatalf("expected client-disconnected, got %v", err)
	}
	aborts := eng.abortCalls()
	if len(aborts) != 1 || aborts[0] != "req-1" {
		t.Fatalf("aborts=%v", aborts)
	}
	if buf.Len() != 0 {
		t.Fatalf("no body expected, got %q", buf.String())
	}
}

func splitFrames(t *testing.T, raw []byte) []types.StreamChunk {
	t.Helper()
	parts := bytes.Split(raw, []byte{0})
	if len(parts) == 0 || len(parts[len(parts)-1]) != 0 {
		t.Fatalf("stream must end with the frame delimiter: %q", raw)
	}
	parts = parts[:len(parts)-1]
	chunks := make([]types.StreamChunk, 0, len(parts))
	for _, p := range parts {
		var c types.StreamChunk
		if err := json.Unmarshal(p, &c); err != nil {
			t.Fatalf("chunk %q: %v", p, err)
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func TestGenerate_Streaming_OneChunkPerResult(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{
		result("Hello", " wo"),
		result("Hello", " world", " worst"),
	}}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	flushes := 0
	if err := svc.Generate(context.Background(), testRequest(true, false), &buf, func() { flushes++ }); err != nil {
		t.Fatalf("generate: %v", err)
	}
	chunks := splitFrames(t, buf.Bytes())
	if len(chunks) != 2 {
		t.Fatalf("chunks=%d", len(chunks))
	}
	if len(chunks[0].Text) != 1 || chunks[0].Text[0] != " wo" {
		t.Fatalf("chunk0=%+v", chunks[0])
	}
	if len(chunks[1].Text) != 2 || chunks[1].Text[1] != " worst" {
		t.Fatalf("chunk1=%+v", chunks[1])
	}
	if flushes != 2 {
		t.Fatalf("flushes=%d", flushes)
	}
}

func TestGenerate_Streaming_EchoFullText(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{result("Hello", " world")}}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	if err := svc.Generate(context.Background(), testRequest(true, true), &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	chunks := splitFrames(t, buf.Bytes())
	if chunks[0].Text[0] != "Hello world" {
		t.Fatalf("text=%q", chunks[0].Text[0])
	}
}

func TestGenerate_Streaming_DisconnectAborts(t *testing.T) {
	eng := &fakeEngine{
		results:    []engine.Result{result("Hello", " wo")},
		blockAtEnd: true,
		yielded:    make(chan struct{}, 1),
	}
	svc := newTestService(t, eng)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-eng.yielded
		cancel()
	}()
	var buf bytes.Buffer
	err := svc.Generate(ctx, testRequest(true, false), &buf, nil)
	if !IsClientDisconnected(err) {
		t.Fatalf("expected client-disconnected, got %v", err)
	}
	if aborts := eng.abortCalls(); len(aborts) != 1 {
		t.Fatalf("aborts=%v", aborts)
	}
}

func TestGenerate_NoOutput(t *testing.T) {
	eng := &fakeEngine{}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	err := svc.Generate(context.Background(), testRequest(false, false), &buf, nil)
	if !IsNoOutput(err) {
		t.Fatalf("expected no-output error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no body expected, got %q", buf.String())
	}
}

func TestGenerate_EngineFailure(t *testing.T) {
	boom := errors.New("kv cache exhausted")
	eng := &fakeEngine{results: []engine.Result{result("p", "a")}, failErr: boom}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	err := svc.Generate(context.Background(), testRequest(false, false), &buf, nil)
	if !IsEngineFailure(err) {
		t.Fatalf("expected engine failure, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if aborts := eng.abortCalls(); len(aborts) != 1 {
		t.Fatalf("session not released after failure: aborts=%v", aborts)
	}
}

func TestGenerate_NoEngineConfigured(t *testing.T) {
	svc := newTestService(t, nil)
	var buf bytes.Buffer
	err := svc.Generate(context.Background(), testRequest(false, false), &buf, nil)
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency-unavailable, got %v", err)
	}
}

func TestSessionAbortIdempotent(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{result("p", "a")}}
	sess, err := newSession(context.Background(), eng, testRequest(false, false))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	sess.Abort()
	sess.Abort()
	if aborts := eng.abortCalls(); len(aborts) != 1 {
		t.Fatalf("abort must reach the engine once, got %v", aborts)
	}
	if !sess.Aborted() {
		t.Fatal("session should report aborted")
	}
}

func TestSessionAbortAfterCompletion(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{result("p", "a")}}
	sess, err := newSession(context.Background(), eng, testRequest(false, false))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	for {
		if _, err := sess.Next(); err != nil {
			break
		}
	}
	if !sess.Completed() {
		t.Fatal("session should be completed")
	}
	sess.Abort() // must not panic or error after normal exhaustion
	if aborts := eng.abortCalls(); len(aborts) != 1 {
		t.Fatalf("aborts=%v", aborts)
	}
}

func TestStatusCounts(t *testing.T) {
	eng := &fakeEngine{results: []engine.Result{result("p", "a")}}
	svc := newTestService(t, eng)
	var buf bytes.Buffer
	if err := svc.Generate(context.Background(), testRequest(false, false), &buf, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	st := svc.Status()
	if st.RequestsTotal != 1 {
		t.Fatalf("requests_total=%d", st.RequestsTotal)
	}
	if st.ActiveSessions != 0 {
		t.Fatalf("active_sessions=%d", st.ActiveSessions)
	}
	if st.State != "ready" || !strings.Contains(st.Engine, "fake") {
		t.Fatalf("status=%+v", st)
	}
}

func TestStatus_NoEngine(t *testing.T) {
	svc := newTestService(t, nil)
	st := svc.Status()
	if st.State != "degraded" {
		t.Fatalf("state=%q", st.State)
	}
}
