package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureClass
	}{
		{
			name: "status 429",
			err:  &APIError{StatusCode: 429, Message: "slow down"},
			want: ClassRateLimited,
		},
		{
			name: "status 404",
			err:  &APIError{StatusCode: 404, Message: "no such model"},
			want: ClassUnknownModel,
		},
		{
			name: "rate limit by message",
			err:  errors.New("upstream said: Too Many Requests"),
			want: ClassRateLimited,
		},
		{
			name: "unknown model by message",
			err:  &APIError{StatusCode: 400, Message: "The model `gpt-9` does not exist"},
			want: ClassUnknownModel,
		},
		{
			name: "model_not_found code",
			err:  errors.New("model_not_found: gpt-9"),
			want: ClassUnknownModel,
		},
		{
			name: "upstream auth failure",
			err:  &APIError{StatusCode: 401, Message: "invalid api key"},
			want: ClassOther,
		},
		{
			name: "server error",
			err:  &APIError{StatusCode: 500, Message: "internal error"},
			want: ClassOther,
		},
		{
			name: "network failure",
			err:  errors.New("dial tcp: connection refused"),
			want: ClassOther,
		},
		{
			name: "wrapped api error",
			err:  fmt.Errorf("attempt failed: %w", &APIError{StatusCode: 429}),
			want: ClassRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFailureClassRecoverable(t *testing.T) {
	assert.True(t, ClassRateLimited.Recoverable())
	assert.True(t, ClassUnknownModel.Recoverable())
	assert.False(t, ClassOther.Recoverable())
}

func TestAPIErrorMessage(t *testing.T) {
	withMessage := &APIError{StatusCode: 429, Message: "too many requests"}
	assert.Equal(t, "completion API returned status 429: too many requests", withMessage.Error())

	bare := &APIError{StatusCode: 502}
	assert.Equal(t, "completion API returned status 502", bare.Error())
}
