package engine

import "context"

// Engine abstracts the text-generation runtime the server fronts. The engine
// is process-wide and shared across requests; per-request isolation is by
// request id, enforced by the engine itself.
type Engine interface {
	// Generate starts one generation and returns a stream of incremental
	// results. The stream is finite and cannot be replayed. Implementations
	// must stop producing when the context is canceled.
	Generate(ctx context.Context, prompt string, params SamplingParams, requestID string) (ResultStream, error)
	// Abort instructs the engine to release resources for a request. It must
	// be safe to call on an already-completed or already-aborted request.
	Abort(ctx context.Context, requestID string) error
	// Describe returns a short human-readable description of the backend.
	Describe() string
}

// ResultStream delivers incremental results in engine emission order.
// Recv returns io.EOF once the engine signals completion.
type ResultStream interface {
	Recv() (Result, error)
}

// SamplingParams captures generation parameters passed to the engine.
type SamplingParams struct {
	// MaxTokens is the maximum number of new tokens to generate.
	MaxTokens int
	// UseBeamSearch carries the client's do_sample flag verbatim. The mapping
	// is inherited from the wire contract and kept for compatibility.
	UseBeamSearch bool
	// Extra holds engine-specific knobs forwarded untouched.
	Extra map[string]any
}

// Output is one candidate completion within a result.
type Output struct {
	Text string
}

// Result is a cumulative snapshot of generation state, not a delta: each
// output already contains the full text generated so far for that candidate.
type Result struct {
	Prompt  string
	Outputs []Output
}
