package llm

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"prompt-proxy/pkg/utils"
)

const (
	// DefaultBaseURL is the OpenAI-compatible completion endpoint used when
	// no override is configured.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeoutSeconds bounds one upstream completion call.
	DefaultTimeoutSeconds = 60
)

// Config contains configuration for the completion service: upstream
// credentials, endpoint, and the priority-ordered candidate model list.
type Config struct {
	// APIKey is the bearer token for the completion API
	APIKey string `yaml:"api_key"`
	// BaseURL is the root of the OpenAI-compatible API
	BaseURL string `yaml:"base_url"`
	// Models is the fallback candidate list, highest priority first
	Models []string `yaml:"models"`
	// TimeoutSeconds bounds a single upstream request
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

var (
	// config is the singleton instance of the configuration
	config *Config
	// configOnce ensures the configuration is initialized only once
	configOnce sync.Once
)

// DefaultCandidates returns the built-in candidate list used when neither
// the config file nor LLM_MODELS names one.
func DefaultCandidates() []string {
	return []string{"gpt-4o", "gpt-4o-mini", "gpt-3.5-turbo"}
}

// GetConfig returns the singleton service configuration. On first call it
// loads defaults, then the YAML file named by LLM_CONFIG_FILE (if any), then
// environment variable overrides. A broken config file or environment does
// not take the process down: the singleton falls back to built-in defaults
// (keeping LLM_API_KEY if set) and is never nil.
func GetConfig() *Config {
	configOnce.Do(func() {
		c, err := LoadConfig(os.Getenv("LLM_CONFIG_FILE"))
		if err != nil {
			log.Printf("Warning: invalid completion config, using defaults: %v", err)
			c = &Config{
				APIKey:         os.Getenv("LLM_API_KEY"),
				BaseURL:        DefaultBaseURL,
				Models:         DefaultCandidates(),
				TimeoutSeconds: DefaultTimeoutSeconds,
			}
		}
		config = c
	})
	return config
}

// LoadConfig builds a Config from defaults, the YAML file at path (optional,
// "" skips it), and environment variables, in increasing precedence.
func LoadConfig(path string) (*Config, error) {
	c := &Config{
		BaseURL:        DefaultBaseURL,
		Models:         DefaultCandidates(),
		TimeoutSeconds: DefaultTimeoutSeconds,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("LLM_MODELS"); v != "" {
		c.Models = splitModelList(v)
	}
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS: %q", v)
		}
		c.TimeoutSeconds = secs
	}

	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if len(c.Models) == 0 {
		c.Models = DefaultCandidates()
	}

	return c, nil
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaskedAPIKey returns the API key in a form safe to log.
func (c *Config) MaskedAPIKey() string {
	return utils.MaskToken(c.APIKey)
}

func splitModelList(v string) []string {
	var models []string
	for _, m := range strings.Split(v, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}
