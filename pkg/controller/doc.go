// Package controller contains HTTP middlewares and helper handlers used by the API server.
//
// Provided middlewares:
//   - WithCORS: Adds permissive CORS headers and handles OPTIONS preflight.
//   - WithLogger: Attaches a request-scoped logger and request ID to the context and logs access info.
//   - WithMetrics: Records request durations on the provided histogram.
//
// Provided helpers:
//   - GetRequestID: Reads the request ID WithLogger stored in the context.
//   - PprofMux: Returns a ServeMux exposing net/http/pprof handlers.
package controller
