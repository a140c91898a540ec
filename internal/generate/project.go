package generate

import (
	"context"
	"encoding/json"
	"io"

	"github.com/tabbas97/hf-codecomplete-server/internal/engine"
	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

// frameDelimiter terminates each streamed chunk. Part of the wire contract;
// clients split the stream on it.
const frameDelimiter = byte(0)

// renderTexts applies the echo rule to every candidate of a result. The
// prompt comes from the result itself, matching engine semantics.
func renderTexts(res engine.Result, echo bool) []string {
	texts := make([]string, 0, len(res.Outputs))
	for _, out := range res.Outputs {
		if echo {
			texts = append(texts, res.Prompt+out.Text)
		} else {
			texts = append(texts, out.Text)
		}
	}
	return texts
}

// streamResults emits one framed chunk per incremental result, flushing each
// immediately. A client disconnect aborts the session instead of letting the
// engine run to completion.
func (s *Service) streamResults(ctx context.Context, sess *Session, req *Request, w io.Writer, flush func()) error {
	for {
		if ctx.Err() != nil {
			s.abortSession(sess, "disconnect")
			return clientDisconnectedError{id: req.ID}
		}
		res, err := sess.Next()
		if err == io.EOF {
			sess.release()
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				s.abortSession(sess, "disconnect")
				return clientDisconnectedError{id: req.ID}
			}
			s.abortSession(sess, "engine_error")
			return engineFailureError{id: req.ID, err: err}
		}
		s.sessions.touch(req.ID)

		frame, merr := json.Marshal(types.StreamChunk{Text: renderTexts(res, req.EchoFullText)})
		if merr != nil {
			s.abortSession(sess, "encode_error")
			return engineFailureError{id: req.ID, err: merr}
		}
		frame = append(frame, frameDelimiter)
		if _, werr := w.Write(frame); werr != nil {
			s.abortSession(sess, "disconnect")
			return clientDisconnectedError{id: req.ID}
		}
		if flush != nil {
			flush()
		}
		resultsStreamedTotal.Inc()
	}
}

// collectResult drains the stream keeping only the latest result, checking
// for client disconnect before every pull. On normal exhaustion it projects
// the first candidate of the final result.
func (s *Service) collectResult(ctx context.Context, sess *Session, req *Request, w io.Writer) error {
	var last engine.Result
	got := false
	for {
		select {
		case <-ctx.Done():
			s.abortSession(sess, "disconnect")
			return clientDisconnectedError{id: req.ID}
		default:
		}
		res, err := sess.Next()
		if err == io.EOF {
			sess.release()
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				s.abortSession(sess, "disconnect")
				return clientDisconnectedError{id: req.ID}
			}
			s.abortSession(sess, "engine_error")
			return engineFailureError{id: req.ID, err: err}
		}
		s.sessions.touch(req.ID)
		last = res
		got = true
	}
	if !got || len(last.Outputs) == 0 {
		return noOutputError{id: req.ID}
	}

	// Only the first candidate makes it into the aggregated payload.
	text := renderTexts(last, req.EchoFullText)[0]
	return json.NewEncoder(w).Encode(types.GenerateResponse{
		GeneratedText: text,
		Status:        200,
	})
}
