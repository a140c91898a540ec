package genctl

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

func TestScanFrames(t *testing.T) {
	in := "{\"text\":[\"a\"]}\x00{\"text\":[\"ab\"]}\x00"
	sc := bufio.NewScanner(strings.NewReader(in))
	sc.Split(scanFrames)
	var frames []string
	for sc.Scan() {
		frames = append(frames, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(frames) != 2 || frames[1] != `{"text":["ab"]}` {
		t.Fatalf("frames=%v", frames)
	}
}

func TestScanFrames_TrailingPartial(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("{\"text\":[\"a\"]}\x00{\"tail\":1}"))
	sc.Split(scanFrames)
	var frames []string
	for sc.Scan() {
		frames = append(frames, sc.Text())
	}
	if len(frames) != 2 || frames[1] != `{"tail":1}` {
		t.Fatalf("frames=%v", frames)
	}
}

func TestClientGenerate_Aggregated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate/starcoder" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Inputs != "Hello" || req.Parameters.MaxNewTokens != 5 {
			t.Errorf("req=%+v", req)
		}
		json.NewEncoder(w).Encode(types.GenerateResponse{GeneratedText: " world", Status: 200})
	}))
	defer srv.Close()

	cli := NewClient(srv.URL)
	resp, err := cli.Generate(context.Background(), "starcoder", types.GenerateRequest{
		Inputs:     "Hello",
		Parameters: types.GenerateParameters{MaxNewTokens: 5},
	}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.GeneratedText != " world" {
		t.Fatalf("resp=%+v", resp)
	}
}

func TestClientGenerate_Streaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(append([]byte(`{"text":[" wo"]}`), 0))
		w.Write(append([]byte(`{"text":[" world"," worst"]}`), 0))
	}))
	defer srv.Close()

	cli := NewClient(srv.URL)
	var chunks []types.StreamChunk
	_, err := cli.Generate(context.Background(), "m", types.GenerateRequest{
		Inputs:     "Hello",
		Stream:     true,
		Parameters: types.GenerateParameters{MaxNewTokens: 5},
	}, func(c types.StreamChunk) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(chunks) != 2 || len(chunks[1].Text) != 2 {
		t.Fatalf("chunks=%+v", chunks)
	}
}

func TestClientGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(types.ErrorResponse{Error: "inputs is required", Code: 400})
	}))
	defer srv.Close()

	cli := NewClient(srv.URL)
	_, err := cli.Generate(context.Background(), "m", types.GenerateRequest{}, nil)
	if err == nil || !strings.Contains(err.Error(), "inputs is required") {
		t.Fatalf("err=%v", err)
	}
}

func TestRootCmd_GenerateAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.GenerateResponse{GeneratedText: " return n", Status: 200})
	}))
	defer srv.Close()

	root := BuildRootCmd()
	var out strings.Builder
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"generate", "--server", srv.URL, "-p", "def fib(n):", "-n", "8"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), " return n") {
		t.Fatalf("out=%q", out.String())
	}
}

func TestRootCmd_GenerateRequiresPrompt(t *testing.T) {
	root := BuildRootCmd()
	root.SetArgs([]string{"generate"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without --prompt")
	}
}
