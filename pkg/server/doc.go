// Package server exposes the Omnis engine over HTTP.
//
// Routes are registered on a Go 1.22 pattern mux and wrapped with OpenTelemetry
// and Prometheus middleware. The caller identity comes from the
// X-Caller-Identity header; submissions can be answered as JSON or streamed as
// server-sent events when the client asks for text/event-stream.
package server
