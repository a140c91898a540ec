// Package generate is the request-lifecycle adapter between the HTTP layer
// and the inference engine. It is structured into small files by concern:
//
//   - params.go: request body validation and translation into a Request.
//   - session.go: Session type owning one engine stream and its abort path.
//   - registry.go: ttl-based tracking of in-flight sessions.
//   - project.go: streaming and aggregated projection of engine results.
//   - service.go: Service type tying the above together, plus /status data.
//   - errors.go: error types and predicates (IsMalformedRequest, ...).
//   - metrics.go: prometheus collectors for generation behavior.
//
// External packages should treat Service as the orchestration entry point and
// use public methods only (New/NewWithConfig, Generate, Status, Ready).
package generate
