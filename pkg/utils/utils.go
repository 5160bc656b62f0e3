// Package utils provides small helpers shared by the command and server
// packages: environment lookups, token masking for log output, and request
// ID generation.
package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// GetEnvWithDefault retrieves an environment variable or returns a default
// value if not set.
//
// Parameters:
//   - name: The name of the environment variable
//   - defaultValue: The default value to return if the environment variable is not set
//
// Returns the value of the environment variable, or the default value if not set.
func GetEnvWithDefault(name, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	return value
}

// EnvFlagEnabled reports whether a boolean-style environment variable is set
// to "true" or "1".
func EnvFlagEnabled(name string) bool {
	v := os.Getenv(name)
	return v == "true" || v == "1"
}

// MaskToken returns a partially masked version of a secret suitable for
// logging. Short values are fully masked.
func MaskToken(token string) string {
	if token == "" {
		return "[empty token]"
	}
	if len(token) <= 10 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// NewRequestID creates a unique identifier for one upstream request,
// combining a timestamp with a random UUID fragment.
func NewRequestID() string {
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405.000Z"), uuid.New().String()[:8])
}
