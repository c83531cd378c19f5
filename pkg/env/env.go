// Package env reads process environment variables with fallbacks.
package env

import "os"

// Get returns the named environment variable, or fallback when the
// variable is unset or empty.
func Get(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}
