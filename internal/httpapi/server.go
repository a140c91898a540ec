package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabbas97/hf-codecomplete-server/internal/generate"
	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Generate(ctx context.Context, req *generate.Request, w io.Writer, flush func()) error
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// The model name segment is accepted for client compatibility. The engine
	// owns model selection, so beyond logging it is not interpreted here.
	r.Post("/api/generate/*", handleGenerate(svc))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Swagger UI, only with -tags=swagger
	MountSwagger(r)

	return r
}

// handleGenerate serves POST /api/generate/{modelname}.
//
// @Summary      Generate a completion
// @Description  Translates the request into one engine invocation and returns either a null-byte framed stream of chunks or a single aggregated payload.
// @Accept       json
// @Produce      json
// @Param        modelname  path  string                 true  "Model name (accepted, not interpreted)"
// @Param        request    body  types.GenerateRequest  true  "Generation request"
// @Success      200  {object}  types.GenerateResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      499  {object}  types.AbortedResponse
// @Failure      502  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /api/generate/{modelname} [post]
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		req, err := generate.ParseRequest(r.Body)
		if err != nil {
			// Translation failures never reach the engine.
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		modelName := chi.URLParam(r, "*")
		lvl := requestLogLevel(r)
		start := time.Now()
		if lvl >= LevelInfo {
			if zlog != nil {
				zlog.Info().
					Str("model", modelName).
					Str("request_id", req.ID).
					Bool("stream", req.Stream).
					Msg("generate start")
			} else {
				log.Printf("generate start model=%s request_id=%s stream=%v", modelName, req.ID, req.Stream)
			}
		}

		if req.Stream {
			w.Header().Set("Content-Type", "application/octet-stream")
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		writer := io.Writer(w)
		if req.Stream && lvl >= LevelDebug {
			writer = io.MultiWriter(w, &loggingFrameWriter{})
		}
		cw := &countingWriter{w: writer}

		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		genErr := svc.Generate(joinedCtx, req, cw, flush)
		status := http.StatusOK
		if genErr != nil {
			status = writeGenerateError(w, req, cw.n > 0, genErr)
		}
		if lvl >= LevelInfo {
			if zlog != nil {
				ev := zlog.Info().
					Int("status", status).
					Str("request_id", req.ID).
					Dur("dur", time.Since(start))
				if genErr != nil {
					ev = ev.Err(genErr)
				}
				ev.Msg("generate end")
			} else {
				log.Printf("generate end status=%d request_id=%s dur=%s err=%v", status, req.ID, time.Since(start), genErr)
			}
		}
	}
}

// countingWriter tracks whether the service already wrote response bytes.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// writeGenerateError maps service errors to HTTP responses and returns the
// status used. Once stream bytes have gone out the status line is already
// committed, so errors mid-stream only terminate the connection.
func writeGenerateError(w http.ResponseWriter, req *generate.Request, wrote bool, err error) int {
	if generate.IsClientDisconnected(err) {
		IncrementClientAborts()
		if req.Stream && wrote {
			return generate.StatusClientClosedRequest
		}
		writeAborted(w, generate.StatusClientClosedRequest)
		return generate.StatusClientClosedRequest
	}
	status := http.StatusInternalServerError
	if he, ok := err.(HTTPError); ok {
		status = he.StatusCode()
	}
	if !req.Stream || !wrote {
		writeJSONError(w, status, err.Error())
	}
	return status
}
