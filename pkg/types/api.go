package types

// GenerateRequest is the JSON payload accepted by POST /api/generate/{modelname}.
// The shape is kept wire-compatible with the HuggingFace text-generation
// clients used by code-completion extensions.
type GenerateRequest struct {
	// Required prompt text to complete.
	// example: def fib(n):
	Inputs string `json:"inputs" example:"def fib(n):"`
	// Required generation parameters.
	Parameters GenerateParameters `json:"parameters"`
	// If true, stream results as null-byte delimited JSON chunks.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
}

// GenerateParameters carries sampling configuration. Keys not listed here are
// forwarded to the engine untouched.
type GenerateParameters struct {
	// Maximum number of new tokens to generate. Required and positive.
	// example: 64
	MaxNewTokens int `json:"max_new_tokens" example:"64"`
	// If true, responses echo the prompt ahead of the generated text.
	// example: false
	ReturnFullText bool `json:"return_full_text,omitempty" example:"false"`
	// Sampling toggle forwarded to the engine. Defaults to true when omitted.
	// example: true
	DoSample *bool `json:"do_sample,omitempty" example:"true"`
}

// GenerateResponse is the non-streaming success payload.
type GenerateResponse struct {
	// The generated text for the first candidate of the final result.
	// example:  return n
	GeneratedText string `json:"generated_text" example:" return n"`
	// HTTP status echoed in the body for client convenience.
	// example: 200
	Status int `json:"status" example:"200"`
}

// StreamChunk is one frame of a streaming response. On the wire each chunk is
// serialized as JSON and terminated with a single null byte.
type StreamChunk struct {
	// Cumulative text per candidate, in candidate order.
	Text []string `json:"text"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// AbortedResponse is the body returned when a client disconnects mid-request.
// Its shape is fixed by the wire contract and intentionally carries no code
// field.
type AbortedResponse struct {
	// example: Request aborted
	Error string `json:"error" example:"Request aborted"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Number of generation sessions currently in flight.
	// example: 1
	ActiveSessions int `json:"active_sessions" example:"1"`
	// Total generate requests accepted since startup.
	// example: 42
	RequestsTotal uint64 `json:"requests_total" example:"42"`
	// Total sessions aborted because the client went away or idled out.
	// example: 3
	AbortsTotal uint64 `json:"aborts_total" example:"3"`
	// Description of the configured engine backend.
	// example: remote(http://127.0.0.1:8001)
	Engine string `json:"engine"`
	// Overall service state (ready or degraded).
	// example: ready
	State string `json:"state" example:"ready"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
