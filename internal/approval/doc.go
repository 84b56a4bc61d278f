// Package approval implements the human-approval gate: a synchronization
// primitive that suspends workflow progress until an explicit approve or
// reject decision is recorded for a pending payload.
package approval
