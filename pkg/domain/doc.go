// Package domain defines the core types and errors of the Omnis workflow engine.
//
// This package contains pure domain types with ZERO external dependencies outside
// the Go standard library. Everything here is:
//
// - Independent of transport (no HTTP, SSE, or CLI coupling)
// - Free of process-wide state
// - Testable in isolation without mocks
//
// The catalog, intent, workflow, engine, and storage packages operate on these
// types. The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
