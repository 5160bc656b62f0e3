package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FailureClass describes why an attempt against one candidate model failed.
type FailureClass string

const (
	// ClassRateLimited marks a "too many requests" condition reported by the
	// provider. The resolver moves on to the next candidate.
	ClassRateLimited FailureClass = "rate_limited"
	// ClassUnknownModel marks a rejected or unavailable model identifier.
	// The resolver moves on to the next candidate.
	ClassUnknownModel FailureClass = "unknown_model"
	// ClassOther covers everything else: network failures, malformed
	// responses, upstream auth errors. The resolver aborts the chain.
	ClassOther FailureClass = "other"
)

// Recoverable reports whether the resolver should advance to the next
// candidate after a failure of this class.
func (c FailureClass) Recoverable() bool {
	return c == ClassRateLimited || c == ClassUnknownModel
}

// APIError is a non-2xx response from the completion API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion API returned status %d: %s", e.StatusCode, e.Message)
}

// Classify maps an attempt error to its failure class. Rate limiting is
// recognized by status 429 or a "too many requests" message; an unknown
// model by status 404 or the provider's model-not-found wording. Anything
// else, including plain transport errors, is ClassOther.
func Classify(err error) FailureClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return ClassRateLimited
		case http.StatusNotFound:
			return ClassUnknownModel
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests") || strings.Contains(msg, "rate limit"):
		return ClassRateLimited
	case strings.Contains(msg, "unknown model") || strings.Contains(msg, "model_not_found") ||
		strings.Contains(msg, "does not exist") && strings.Contains(msg, "model"):
		return ClassUnknownModel
	default:
		return ClassOther
	}
}
