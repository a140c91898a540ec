package generate

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/tabbas97/hf-codecomplete-server/internal/engine"
	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

// Config holds tunables for the Service. Zero values fall back to package
// defaults.
type Config struct {
	// SessionIdleTTL bounds how long a session may sit without delivering a
	// result before it is aborted.
	SessionIdleTTL time.Duration
}

const defaultSessionIdleTTL = 5 * time.Minute

// Service is the request-lifecycle adapter between the HTTP layer and the
// engine. The engine is injected at construction; it must be initialized
// before the first request is served.
type Service struct {
	eng      engine.Engine
	sessions *registry
	started  time.Time

	requestsTotal atomic.Uint64
	abortsTotal   atomic.Uint64
}

// New constructs a Service with default configuration.
func New(eng engine.Engine) *Service {
	return NewWithConfig(eng, Config{})
}

// NewWithConfig constructs a Service, applying defaults for zero fields.
func NewWithConfig(eng engine.Engine, cfg Config) *Service {
	ttl := cfg.SessionIdleTTL
	if ttl <= 0 {
		ttl = defaultSessionIdleTTL
	}
	s := &Service{
		eng:     eng,
		started: time.Now(),
	}
	s.sessions = newRegistry(ttl, func(sess *Session) {
		s.abortSession(sess, "idle")
	})
	return s
}

// Close stops the session registry. In-flight sessions finish on their own.
func (s *Service) Close() {
	s.sessions.close()
}

// Ready reports whether an engine backend is configured.
func (s *Service) Ready() bool { return s.eng != nil }

// Status builds the response for GET /status.
func (s *Service) Status() types.StatusResponse {
	state := "ready"
	engineDesc := "none"
	if s.eng == nil {
		state = "degraded"
	} else {
		engineDesc = s.eng.Describe()
	}
	now := time.Now()
	return types.StatusResponse{
		ActiveSessions: s.sessions.active(),
		RequestsTotal:  s.requestsTotal.Load(),
		AbortsTotal:    s.abortsTotal.Load(),
		Engine:         engineDesc,
		State:          state,
		UptimeSeconds:  int64(now.Sub(s.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

// Generate runs one request end to end: starts a session, drains the
// engine's results, and writes either the null-byte framed stream or the
// final aggregated payload to w. Exactly one engine invocation is attempted
// per call; there are no retries.
func (s *Service) Generate(ctx context.Context, req *Request, w io.Writer, flush func()) error {
	if s.eng == nil {
		return ErrDependencyUnavailable("no engine configured")
	}
	s.requestsTotal.Add(1)

	sess, err := newSession(ctx, s.eng, req)
	if err != nil {
		if ctx.Err() != nil {
			return clientDisconnectedError{id: req.ID}
		}
		return engineFailureError{id: req.ID, err: err}
	}
	s.sessions.add(sess)
	defer s.sessions.remove(req.ID)

	if req.Stream {
		return s.streamResults(ctx, sess, req, w, flush)
	}
	return s.collectResult(ctx, sess, req, w)
}

// abortSession aborts once and records why.
func (s *Service) abortSession(sess *Session, reason string) {
	sess.Abort()
	s.abortsTotal.Add(1)
	sessionAbortsTotal.WithLabelValues(reason).Inc()
}
