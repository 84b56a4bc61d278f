// Package dedupe provides a time-bounded cache for suppressing duplicate
// inbound client frames within a configurable window.
package dedupe
