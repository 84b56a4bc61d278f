// ABOUTME: Package documentation for the auth package
// ABOUTME: Optional JWT bearer authentication for the HTTP API

// Package auth provides optional bearer-token authentication for the
// gateway's HTTP API.
//
// When a JWT secret is configured, every API request must carry an
// Authorization header with an HS256-signed bearer token whose "sub"
// claim identifies the calling client. The client ID travels through
// the request context so handlers can attribute sessions to callers.
// When no secret is configured the middleware is not installed and the
// API is open, which is the expected mode for local development.
package auth
