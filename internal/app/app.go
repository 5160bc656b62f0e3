// Package app wires the HTTP surface: OAuth login routes, static pages,
// and the authenticated completion endpoints. Handlers here are transport
// plumbing only; resolution decisions live in internal/llm.
package app

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"prompt-proxy/internal/auth"
	"prompt-proxy/internal/llm"
)

// stateCookieName carries the OAuth anti-CSRF state between the login
// redirect and the callback.
const stateCookieName = "oauth_state"

// App represents the main application with its router, authentication
// service, and completion endpoints.
type App struct {
	Router    chi.Router
	Auth      *auth.Service
	LLM       *llm.ServerState
	staticDir string
}

// NewApp creates and initializes a new instance of the App struct.
func NewApp(authService *auth.Service, llmState *llm.ServerState, staticDir string) *App {
	app := &App{
		Router:    chi.NewRouter(),
		Auth:      authService,
		LLM:       llmState,
		staticDir: staticDir,
	}

	app.initializeRoutes()
	return app
}

func (a *App) initializeRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(middleware.Logger)
	a.Router.Use(middleware.Recoverer)

	a.Router.Get("/healthz", a.handleHealth)
	a.Router.Get("/login", a.handleLogin)
	a.Router.Get("/oauth/callback", a.handleOAuthCallback)
	a.Router.Post("/logout", a.handleLogout)

	a.Router.Group(func(r chi.Router) {
		r.Use(a.Auth.RequireSession)
		r.Get("/api/me", a.handleMe)
		a.LLM.RegisterHandlers(r)
	})

	if a.staticDir != "" {
		a.Router.Handle("/*", http.FileServer(http.Dir(a.staticDir)))
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.Auth.LoginURL(state), http.StatusFound)
}

func (a *App) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	accessToken, err := a.Auth.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("oauth exchange failed: %v", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	user, err := a.Auth.FetchUser(r.Context(), accessToken)
	if err != nil {
		log.Printf("fetching user profile failed: %v", err)
		http.Error(w, "login failed", http.StatusBadGateway)
		return
	}

	_, token, err := a.Auth.CreateSession(user)
	if err != nil {
		log.Printf("creating session failed: %v", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// The state cookie has served its purpose.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if session, err := a.Auth.ValidateSession(cookie.Value); err == nil {
			a.Auth.RevokeSession(session.ID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.User)
}
