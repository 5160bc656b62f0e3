package llm

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// chatTemplate frames a conversational message before it is handed to the
// resolver. The resolver itself never inspects or validates the prompt.
const chatTemplate = "You are a helpful assistant. Reply conversationally to the following message.\n\n%s"

// ServerState holds the HTTP-facing state for the completion endpoints.
type ServerState struct {
	Resolver *Resolver
}

// NewServerState wires the completion endpoints to a resolver.
func NewServerState(resolver *Resolver) *ServerState {
	return &ServerState{Resolver: resolver}
}

// AskParams is the request body for the ask endpoint.
type AskParams struct {
	Prompt string `json:"prompt"`
}

// ChatParams is the request body for the conversational endpoint.
type ChatParams struct {
	Message string `json:"message"`
}

// AskResponse is the wire shape for resolver results on the ask endpoint.
type AskResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
}

// ChatResponse is the wire shape for resolver results on the chat endpoint.
type ChatResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
}

// HandleAsk resolves a raw prompt and returns {success, content}.
func (s *ServerState) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var params AskParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result := s.Resolver.Resolve(r.Context(), params.Prompt)
	if !result.Success {
		writeJSON(w, http.StatusBadGateway, AskResponse{Success: false, Content: result.FailureReport()})
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{Success: true, Content: result.Content})
}

// HandleChat wraps the user's message in the conversational template and
// resolves it, returning {success, reply}.
func (s *ServerState) HandleChat(w http.ResponseWriter, r *http.Request) {
	var params ChatParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	prompt := fmt.Sprintf(chatTemplate, params.Message)

	result := s.Resolver.Resolve(r.Context(), prompt)
	if !result.Success {
		writeJSON(w, http.StatusBadGateway, ChatResponse{Success: false, Reply: result.FailureReport()})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Success: true, Reply: result.Content})
}

// HandleListModels reports the configured candidate list in priority order.
func (s *ServerState) HandleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"models": s.Resolver.Candidates()})
}

// RegisterHandlers mounts the completion endpoints on a router.
func (s *ServerState) RegisterHandlers(r chi.Router) {
	r.Post("/api/ask", s.HandleAsk)
	r.Post("/api/chat", s.HandleChat)
	r.Get("/api/models", s.HandleListModels)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
