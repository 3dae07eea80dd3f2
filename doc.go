// Package pipeline provides a durable, resumable orchestration core for a
// multi-stage content-generation workflow. For each configured (region,
// slot) pair it sequences keyword discovery, query refinement and
// validation against a scoring predictor, externally-delegated asset
// assembly, and optional publishing.
//
// The pipeline is designed as a library, not a service. Import it,
// configure a state store, wire the collaborator clients, and drive runs
// through the orchestrator package.
//
// # Architecture
//
// The pipeline follows a composable store pattern: the state package
// defines the run-state document and its Store interface, and a backend
// (file, memory, redis, postgres, mongo) implements it. Progress is
// persisted after every transition, so a crashed or restarted run
// continues exactly where it left off: no redone work, no double
// publish.
//
// Transient collaborator failures are retried with bounded exponential
// backoff (see the retry package). Domain failures, such as a query whose
// candidates miss the quality thresholds, are terminal for that unit of
// work and never retried.
package pipeline
