// Package agui defines the JSON frame types for the UI-facing conversational
// protocol. Frames flow in both directions: inbound user messages, form
// submissions, and approval decisions; outbound stage notifications, tool
// activity, approval requests, and the final summary.
package agui
