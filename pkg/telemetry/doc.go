// Package telemetry wires OpenTelemetry tracing and metrics for the Omnis
// workflow engine.
//
// It centralises trace provider setup, applies service resource attributes, and
// records submission and execution instruments partitioned by workflow category
// so operators can see which intents dominate traffic and how long the simulated
// agent runs take. Prompt text never leaves the process: spans carry only its
// length and a correlation hash.
package telemetry
