// Package config loads and validates the trip-gateway YAML configuration,
// including the static specialized-service list, workflow timing, and the
// logging, auth, and metrics surfaces.
package config
