/*
Package llm implements the multi-model query resolution core: given a
prompt, try a priority-ordered list of candidate models against one
OpenAI-compatible completion API until one answers.

# Architecture Overview

The package follows a layered structure:

1. HTTP Handlers (handlers.go)
  - Provide the /api/ask and /api/chat endpoints
  - Convert between HTTP and internal data formats
  - Hold no decision logic of their own

2. Resolver (resolver.go)
  - Iterates the candidate list in fixed priority order
  - One synchronous attempt per candidate, no per-candidate retry
  - Returns the first completion, or the ordered log of every failure

3. Failure Classification (errors.go)
  - Rate limiting (429) and unknown-model rejections are recoverable:
    the resolver records them and advances to the next candidate
  - Every other failure is non-recoverable: the resolver records it and
    aborts the chain, untried candidates included

4. Completion Client (client.go)
  - One chat completion request per attempt, fixed temperature 0.7
  - Typed *APIError for non-2xx responses so classification can key on
    the upstream status code

5. Configuration (config.go)
  - Candidate list, API key, endpoint, and timeout
  - Loaded from defaults, an optional YAML file, and the environment

# Resolution Flow

1. An authenticated request arrives at /api/ask or /api/chat
2. The handler builds the prompt string and calls Resolve
3. The resolver tries candidates in order, classifying each failure
4. The first completion terminates the loop and becomes the result
5. Exhaustion or a non-recoverable failure yields an aggregated report
   naming every model attempted and why it failed

Resolve is total: remote failures are captured as data in the QueryResult
and never surface as errors or panics past the resolver boundary.
*/
package llm
