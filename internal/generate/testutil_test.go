package generate

import (
	"context"
	"io"
	"sync"

	"github.com/tabbas97/hf-codecomplete-server/internal/engine"
)

// fakeEngine is an in-memory engine used across tests. After yielding its
// canned results it either ends the stream, returns failErr, or blocks until
// the generation context is canceled (blockAtEnd).
type fakeEngine struct {
	results    []engine.Result
	failErr    error
	blockAtEnd bool

	// yielded receives one signal per delivered result when set.
	yielded chan struct{}

	mu            sync.Mutex
	aborts        []string
	generateCalls int
}

func (f *fakeEngine) Generate(ctx context.Context, prompt string, params engine.SamplingParams, requestID string) (engine.ResultStream, error) {
	f.mu.Lock()
	f.generateCalls++
	f.mu.Unlock()
	return &fakeStream{eng: f, ctx: ctx}, nil
}

func (f *fakeEngine) Abort(ctx context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts = append(f.aborts, requestID)
	return nil
}

func (f *fakeEngine) Describe() string { return "fake" }

func (f *fakeEngine) abortCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.aborts...)
}

type fakeStream struct {
	eng *fakeEngine
	ctx context.Context
	i   int
}

func (s *fakeStream) Recv() (engine.Result, error) {
	if s.i < len(s.eng.results) {
		res := s.eng.results[s.i]
		s.i++
		if s.eng.yielded != nil {
			s.eng.yielded <- struct{}{}
		}
		return res, nil
	}
	if s.eng.blockAtEnd {
		<-s.ctx.Done()
		return engine.Result{}, s.ctx.Err()
	}
	if s.eng.failErr != nil {
		return engine.Result{}, s.eng.failErr
	}
	return engine.Result{}, io.EOF
}

func result(prompt string, texts ...string) engine.Result {
	outs := make([]engine.Output, 0, len(texts))
	for _, t := range texts {
		outs = append(outs, engine.Output{Text: t})
	}
	return engine.Result{Prompt: prompt, Outputs: outs}
}
