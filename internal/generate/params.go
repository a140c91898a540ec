package generate

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/tabbas97/hf-codecomplete-server/internal/engine"
)

// Request is one validated generation request. It is immutable after
// ParseRequest and owned exclusively by the session created for it.
type Request struct {
	ID           string
	Prompt       string
	Sampling     engine.SamplingParams
	Stream       bool
	EchoFullText bool
}

// rawPayload mirrors the wire shape. Pointer fields distinguish "absent" from
// zero values; parameters stays raw so unknown keys can be forwarded.
type rawPayload struct {
	Inputs     *string                    `json:"inputs"`
	Parameters map[string]json.RawMessage `json:"parameters"`
	Stream     *bool                      `json:"stream"`
}

// Keys the translator consumes itself. Everything else inside parameters is
// passed through to the engine untouched.
var reservedParamKeys = map[string]struct{}{
	"max_new_tokens":   {},
	"return_full_text": {},
	"do_sample":        {},
}

// ParseRequest validates a request body and produces a Request with a fresh
// id. The input is never mutated; every missing or invalid field is reported
// in a single MalformedRequest error and the engine is never touched on
// failure.
func ParseRequest(body io.Reader) (*Request, error) {
	var raw rawPayload
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return nil, ErrMalformedRequest("invalid JSON body")
	}

	var problems []string

	if raw.Inputs == nil {
		problems = append(problems, "inputs is required")
	} else if strings.TrimSpace(*raw.Inputs) == "" {
		problems = append(problems, "inputs must be a non-empty string")
	}

	var maxNewTokens int
	var echo bool
	doSample := true
	extra := map[string]any{}

	if raw.Parameters == nil {
		problems = append(problems, "parameters is required")
	} else {
		if msg, ok := raw.Parameters["max_new_tokens"]; !ok {
			problems = append(problems, "parameters.max_new_tokens is required")
		} else if err := json.Unmarshal(msg, &maxNewTokens); err != nil || maxNewTokens <= 0 {
			problems = append(problems, "parameters.max_new_tokens must be a positive integer")
		}
		if msg, ok := raw.Parameters["return_full_text"]; ok {
			if err := json.Unmarshal(msg, &echo); err != nil {
				problems = append(problems, "parameters.return_full_text must be a boolean")
			}
		}
		if msg, ok := raw.Parameters["do_sample"]; ok {
			if err := json.Unmarshal(msg, &doSample); err != nil {
				problems = append(problems, "parameters.do_sample must be a boolean")
			}
		}
		for k, msg := range raw.Parameters {
			if _, reserved := reservedParamKeys[k]; reserved {
				continue
			}
			var v any
			if err := json.Unmarshal(msg, &v); err != nil {
				problems = append(problems, "parameters."+k+" is not valid JSON")
				continue
			}
			extra[k] = v
		}
	}

	if len(problems) > 0 {
		return nil, ErrMalformedRequest(strings.Join(problems, "; "))
	}

	req := &Request{
		ID:     uuid.NewString(),
		Prompt: *raw.Inputs,
		Sampling: engine.SamplingParams{
			MaxTokens: maxNewTokens,
			// do_sample rides on the beam-search toggle; the conflation is part
			// of the wire contract this server is compatible with.
			UseBeamSearch: doSample,
			Extra:         extra,
		},
		EchoFullText: echo,
	}
	if raw.Stream != nil {
		req.Stream = *raw.Stream
	}
	return req, nil
}
