package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"prompt-proxy/pkg/models"
	"prompt-proxy/pkg/utils"
)

const (
	// completionTemperature is the fixed sampling temperature used for every
	// attempt.
	completionTemperature = 0.7
)

var (
	// ErrAPIKeyMissing is returned when no completion API key is configured
	ErrAPIKeyMissing = errors.New("completion API key not configured")
)

// Client performs chat completion requests against an OpenAI-compatible
// API. It implements Completer.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a completion client from the given configuration.
func NewClient(cfg *Config) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

type completionRequest struct {
	Model       string               `json:"model"`
	Temperature float64              `json:"temperature"`
	Messages    []models.ChatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends one chat completion request for the given model and prompt
// and returns the assistant's reply. Non-2xx upstream responses come back as
// *APIError; transport and decoding problems as plain errors.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", ErrAPIKeyMissing
	}

	body, err := json.Marshal(completionRequest{
		Model:       model,
		Temperature: completionTemperature,
		Messages: []models.ChatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("X-Request-ID", utils.NewRequestID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseAPIError(resp.StatusCode, raw)
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	return parsed.Choices[0].Message.Content, nil
}

// parseAPIError extracts the provider's error message from a non-2xx body.
// Bodies that are not the usual {"error": {...}} envelope are passed through
// verbatim so the detail still reaches the attempt log.
func parseAPIError(status int, body []byte) *APIError {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return &APIError{StatusCode: status, Message: parsed.Error.Message}
	}
	return &APIError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
}
