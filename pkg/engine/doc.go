// Package engine routes free-text requests to simulated multi-agent workflows.
//
// Architecture:
//
// engine.go     - Request orchestration (Engine, Submit, session operations)
// simulator.go  - Simulated DAG execution and narrative emission
// narratives.go - Narrative templates per workflow category and variant
// selector.go   - Seedable source for the engine's only random choices
//
// A submission is validated, classified, composed into a DAG, simulated after a
// bounded delay, and recorded against the caller's session. Nothing is persisted
// and no external service is contacted.
package engine
