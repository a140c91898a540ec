package generate

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/tabbas97/hf-codecomplete-server/internal/engine"
)

// Session owns one in-flight request against the engine: the result stream,
// its cancellation, and the abort handshake. A session is never shared across
// requests and its stream cannot be replayed.
type Session struct {
	id     string
	eng    engine.Engine
	stream engine.ResultStream
	cancel context.CancelFunc

	abortOnce sync.Once
	aborted   atomic.Bool
	completed atomic.Bool
}

// newSession starts generation for req. The stream is bound to a context
// derived from ctx so canceling either side stops the engine.
func newSession(ctx context.Context, eng engine.Engine, req *Request) (*Session, error) {
	genCtx, cancel := context.WithCancel(ctx)
	stream, err := eng.Generate(genCtx, req.Prompt, req.Sampling, req.ID)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Session{id: req.ID, eng: eng, stream: stream, cancel: cancel}, nil
}

// ID returns the request id this session serves.
func (s *Session) ID() string { return s.id }

// Next delivers the engine's next incremental result in emission order.
// io.EOF marks normal completion.
func (s *Session) Next() (engine.Result, error) {
	res, err := s.stream.Recv()
	if err == io.EOF {
		s.completed.Store(true)
	}
	return res, err
}

// Abort cancels the stream and tells the engine to release the request.
// It is idempotent and safe to call on a completed session.
func (s *Session) Abort() {
	s.abortOnce.Do(func() {
		s.aborted.Store(true)
		s.cancel()
		// Best effort: the engine treats aborts of unknown/finished requests
		// as a no-op, so a completed session costs one harmless call.
		_ = s.eng.Abort(context.Background(), s.id)
	})
}

// Aborted reports whether Abort has been invoked.
func (s *Session) Aborted() bool { return s.aborted.Load() }

// Completed reports whether the stream reached normal exhaustion.
func (s *Session) Completed() bool { return s.completed.Load() }

// release tears down the stream context without the engine abort call. Used
// on the normal completion path.
func (s *Session) release() { s.cancel() }
