// Package internal documents the agenda server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, error bodies, and routing
// - domain: users, events, and their services
// - storage: the repository interfaces with PostgreSQL and in-memory backends
// - auth, audit, config, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
