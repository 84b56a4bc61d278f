// Package registry holds the per-process set of callable specialized services
// and their declared capabilities. The registry is built once at startup from
// static configuration and is read-only afterward, so sessions may share it
// without synchronization.
package registry
