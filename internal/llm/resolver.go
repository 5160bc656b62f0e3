package llm

import (
	"context"
	"fmt"
	"strings"
)

// Completer is the narrow capability the resolver needs from the remote
// completion API: one synchronous attempt against one model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Attempt records the outcome of trying one candidate model. Class is empty
// when the attempt produced a completion.
type Attempt struct {
	Model  string       `json:"model"`
	Class  FailureClass `json:"class,omitempty"`
	Detail string       `json:"detail,omitempty"`
}

// Failed reports whether this attempt ended in a classified failure.
func (a Attempt) Failed() bool {
	return a.Class != ""
}

func (a Attempt) String() string {
	if !a.Failed() {
		return fmt.Sprintf("%s: ok", a.Model)
	}
	return fmt.Sprintf("%s (%s): %s", a.Model, a.Class, a.Detail)
}

// QueryResult is the resolver's answer: either a completion from the first
// candidate that produced one, or the ordered log of every failure up to and
// including the terminating one.
type QueryResult struct {
	Success  bool
	Content  string
	Attempts []Attempt
}

// FailureReport renders the attempt log as a single human-readable message
// naming every model tried and why it failed.
func (r QueryResult) FailureReport() string {
	if len(r.Attempts) == 0 {
		return "no candidate models configured"
	}
	parts := make([]string, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		if a.Failed() {
			parts = append(parts, a.String())
		}
	}
	return "all model attempts failed: " + strings.Join(parts, "; ")
}

// Resolver tries a priority-ordered list of candidate models until one
// returns a completion. Rate-limit and unknown-model failures advance the
// chain to the next candidate; any other failure aborts it, untried
// candidates included. Resolve is total: remote failures come back as data,
// never as an error.
type Resolver struct {
	completer  Completer
	candidates []string
}

// NewResolver builds a resolver over the given completer and candidate
// list. The list is used in order and never reordered.
func NewResolver(completer Completer, candidates []string) *Resolver {
	return &Resolver{
		completer:  completer,
		candidates: candidates,
	}
}

// Candidates returns a copy of the configured candidate list in priority
// order. The resolver's own list stays immutable.
func (r *Resolver) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// Resolve dispatches the prompt to each candidate in turn, one attempt per
// candidate, strictly sequentially. The prompt is passed through untouched;
// validating it is the caller's job.
func (r *Resolver) Resolve(ctx context.Context, prompt string) QueryResult {
	result := QueryResult{}

	for _, model := range r.candidates {
		content, err := r.completer.Complete(ctx, model, prompt)
		if err == nil {
			result.Attempts = append(result.Attempts, Attempt{Model: model})
			result.Success = true
			result.Content = content
			return result
		}

		class := Classify(err)
		result.Attempts = append(result.Attempts, Attempt{
			Model:  model,
			Class:  class,
			Detail: err.Error(),
		})

		if !class.Recoverable() {
			break
		}
	}

	return result
}
