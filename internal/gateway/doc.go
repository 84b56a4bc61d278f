// ABOUTME: Package documentation for the gateway package
// ABOUTME: Assembles the trip-planning server and its HTTP API

// Package gateway wires the planning components into a running server.
//
// It builds the agent registry from configuration, connects the invocation
// gateway, approval gate, orchestration controller, and transport hub, and
// exposes the HTTP API: session lifecycle routes under /api/sessions, the
// registry listing, SSE event streams, health endpoints, and optionally
// Prometheus metrics. Bearer-token authentication guards the /api/ routes
// when a JWT secret is configured.
package gateway
