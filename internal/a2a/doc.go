// Package a2a implements the inter-service task protocol: the JSON request
// and response envelopes exchanged with specialized services, and the
// Gateway that dispatches calls under the single-flight discipline with a
// bounded response wait.
package a2a
