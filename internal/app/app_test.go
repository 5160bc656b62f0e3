package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"prompt-proxy/internal/auth"
	"prompt-proxy/internal/llm"
	"prompt-proxy/pkg/models"
)

// stubCompleter answers every attempt with a fixed outcome.
type stubCompleter struct {
	content string
	err     error
}

func (c stubCompleter) Complete(context.Context, string, string) (string, error) {
	return c.content, c.err
}

func newTestApp(t *testing.T, completer llm.Completer, idpURL string) *App {
	t.Helper()

	oauth := auth.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/oauth/callback",
		AuthorizeURL: "https://idp.example.com/authorize",
		TokenURL:     idpURL + "/token",
		UserURL:      idpURL + "/user",
	}

	authService := auth.NewService(oauth, "test-secret")
	resolver := llm.NewResolver(completer, []string{"model-a", "model-b"})

	return NewApp(authService, llm.NewServerState(resolver), "")
}

// newFakeIdP serves the token-exchange and user-profile endpoints of the
// identity provider.
func newFakeIdP(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "provider-token"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.User{ID: 7, Login: "octocat"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHandleHealth(t *testing.T) {
	a := newTestApp(t, stubCompleter{}, "http://localhost:0")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestHandleLoginRedirectsWithState(t *testing.T) {
	a := newTestApp(t, stubCompleter{}, "http://localhost:0")

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "https://idp.example.com/authorize?") {
		t.Errorf("Location = %q", location)
	}

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("no oauth_state cookie set")
	}
	if !strings.Contains(location, "state="+state) {
		t.Errorf("redirect does not carry the state cookie value: %q", location)
	}
}

func TestOAuthCallbackEstablishesSession(t *testing.T) {
	idp := newFakeIdP(t)
	a := newTestApp(t, stubCompleter{content: "resolved"}, idp.URL)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=auth-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusFound, rec.Body.String())
	}

	var sessionToken string
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			sessionToken = c.Value
		}
	}
	if sessionToken == "" {
		t.Fatal("no session cookie set after callback")
	}

	// The session cookie must unlock the API.
	askReq := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"hi"}`))
	askReq.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: sessionToken})
	askRec := httptest.NewRecorder()
	a.Router.ServeHTTP(askRec, askReq)

	if askRec.Code != http.StatusOK {
		t.Fatalf("authenticated ask status = %d, want %d", askRec.Code, http.StatusOK)
	}
	var resp llm.AskResponse
	if err := json.Unmarshal(askRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode ask response: %v", err)
	}
	if !resp.Success || resp.Content != "resolved" {
		t.Errorf("ask response = %+v", resp)
	}
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	idp := newFakeIdP(t)
	a := newTestApp(t, stubCompleter{}, idp.URL)

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=auth-code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAskRejectsAnonymous(t *testing.T) {
	a := newTestApp(t, stubCompleter{content: "never"}, "http://localhost:0")

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"You must be logged in to do that."}` {
		t.Errorf("body = %q", got)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	idp := newFakeIdP(t)
	a := newTestApp(t, stubCompleter{content: "resolved"}, idp.URL)

	_, token, err := a.Auth.CreateSession(models.User{ID: 7, Login: "octocat"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	// The revoked session must no longer unlock the API.
	askReq := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"hi"}`))
	askReq.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	askRec := httptest.NewRecorder()
	a.Router.ServeHTTP(askRec, askReq)

	if askRec.Code != http.StatusUnauthorized {
		t.Errorf("ask after logout status = %d, want %d", askRec.Code, http.StatusUnauthorized)
	}
}

func TestStaticPagesServed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>home</h1>"), 0o600); err != nil {
		t.Fatal(err)
	}

	oauth := auth.OAuthConfig{AuthorizeURL: "https://idp.example.com/authorize"}
	a := NewApp(auth.NewService(oauth, "test-secret"), llm.NewServerState(llm.NewResolver(stubCompleter{}, nil)), dir)

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "home") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
