// ABOUTME: Package doc for the gateway HTTP client
// ABOUTME: Typed access to sessions, agents, approvals, and event streams

// Package client is a typed HTTP client for the trip gateway API. It is
// used by the gateway CLI's health and agents subcommands and is suitable
// for building alternative frontends.
package client
