// prompt-proxy server
//
// This application is a web backend that authenticates users against a
// third-party identity provider, serves static pages, and proxies
// natural-language prompts to a remote completion API through a multi-model
// fallback resolver.
//
// CLI Usage:
//
//	The application supports the following command-line flags:
//
//	--addr=":8080"
//	  Address to listen on in server mode.
//
//	--static="./static"
//	  Directory of static pages to serve at /.
//
//	--config="config.yaml"
//	  Optional YAML file naming the candidate model list, API endpoint,
//	  and timeout. Overrides the LLM_CONFIG_FILE environment variable.
//
//	--resolve="prompt"
//	  Resolves a single prompt against the configured candidate models and
//	  prints the result, then exits. Useful for checking credentials and
//	  the fallback chain without starting the server.
//
//	--disable-auth
//	  Disables session authentication, allowing all API requests.
//
// Environment Variables:
//   - LLM_API_KEY: Bearer token for the completion API
//   - LLM_BASE_URL: Completion API root (default https://api.openai.com/v1)
//   - LLM_MODELS: Comma-separated candidate model list, highest priority first
//   - LLM_TIMEOUT_SECONDS: Per-request upstream timeout
//   - LLM_CONFIG_FILE: YAML config file path
//   - OAUTH_CLIENT_ID / OAUTH_CLIENT_SECRET: Identity provider credentials
//   - OAUTH_REDIRECT_URL: Callback URL registered with the provider
//   - SESSION_SECRET: HMAC secret for session tokens
//   - DISABLE_AUTH: Set to "true" or "1" to disable session verification
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"prompt-proxy/internal/app"
	"prompt-proxy/internal/auth"
	"prompt-proxy/internal/llm"
)

// loadEnvFile loads environment variables from a .env file if present.
// It attempts to load from the current directory and parent directories
// up to the root directory.
func loadEnvFile() {
	// Try current directory first
	err := godotenv.Load()
	if err == nil {
		log.Println("Loaded environment variables from .env file in current directory")
		return
	}

	// Get the current working directory
	workDir, err := os.Getwd()
	if err != nil {
		log.Printf("Warning: Could not determine current directory: %v", err)
		return
	}

	// Try parent directories recursively
	for dir := workDir; dir != "/"; dir = filepath.Dir(dir) {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			err = godotenv.Load(envPath)
			if err == nil {
				log.Printf("Loaded environment variables from %s", envPath)
				return
			}
		}
	}

	log.Println("No .env file found. Using existing environment variables.")
}

// resolveOnce runs a single resolution from the command line and prints the
// outcome, including the per-candidate attempt log.
func resolveOnce(resolver *llm.Resolver, prompt string) {
	result := resolver.Resolve(context.Background(), prompt)

	for _, attempt := range result.Attempts {
		log.Printf("attempt %s", attempt)
	}

	if !result.Success {
		log.Fatalf("resolution failed: %s", result.FailureReport())
	}

	fmt.Println(result.Content)
}

func main() {
	// Load environment variables from .env file
	loadEnvFile()

	// Define CLI flags
	addr := flag.String("addr", ":8080", "Address to listen on")
	staticDir := flag.String("static", "./static", "Directory of static pages")
	configPath := flag.String("config", "", "YAML config file for the completion service")
	resolvePrompt := flag.String("resolve", "", "Resolve a single prompt and exit")
	disableAuth := flag.Bool("disable-auth", false, "Disable session authentication and accept all requests")

	flag.Parse()

	// Set environment variable if disable-auth flag is set
	if *disableAuth {
		os.Setenv("DISABLE_AUTH", "true")
		log.Println("Session authentication is disabled - all requests will be accepted")
	}

	if *configPath != "" {
		os.Setenv("LLM_CONFIG_FILE", *configPath)
	}

	// Build the completion service
	cfg := llm.GetConfig()
	if cfg.APIKey == "" {
		log.Println("Warning: no completion API key configured. Upstream calls will fail until LLM_API_KEY is set.")
	} else {
		log.Printf("Completion API key loaded: %s", cfg.MaskedAPIKey())
	}
	log.Printf("Candidate models (priority order): %v", cfg.Models)

	resolver := llm.NewResolver(llm.NewClient(cfg), cfg.Models)

	// One-shot CLI resolution
	if *resolvePrompt != "" {
		resolveOnce(resolver, *resolvePrompt)
		return
	}

	// Initialize the authentication service
	authService := auth.NewService(auth.OAuthConfigFromEnv(), os.Getenv("SESSION_SECRET"))

	// Wire the application
	a := app.NewApp(authService, llm.NewServerState(resolver), *staticDir)

	// Create a context that will be canceled on program termination
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	// Start HTTP server with graceful shutdown
	server := &http.Server{
		Addr:    *addr,
		Handler: a.Router,
	}

	// Start the server in a goroutine
	go func() {
		log.Printf("Starting server on %s...", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Create a deadline for server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	} else {
		log.Println("Server gracefully stopped")
	}
}
