// Package classify maps opaque service response payloads to a closed set of
// schema tags via ordered structural matching. Classification is total:
// malformed or unrecognized payloads are tagged unclassified, never rejected.
package classify
