// Package providers adapts LLM SDKs to the single text-completion call the
// commit reactor needs.
package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var (
	// ErrMissingCredentials indicates no API key was configured for the provider.
	ErrMissingCredentials = errors.New("missing provider credentials")

	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrDisabled indicates generation was turned off in configuration.
	ErrDisabled = errors.New("message generation disabled")

	// ErrEmptyCompletion indicates the provider returned no text.
	ErrEmptyCompletion = errors.New("provider returned an empty completion")
)

// ProviderType names a supported provider.
type ProviderType string

const (
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeGemini    ProviderType = "gemini"
	ProviderTypeAuto      ProviderType = "auto"
	ProviderTypeNone      ProviderType = "none"
)

// Generator produces a single text completion for a system role and prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, systemRole, prompt string) (string, error)
}

// Config selects and configures a Generator.
type Config struct {
	Provider  ProviderType
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// DefaultTimeout bounds a single generation request.
const DefaultTimeout = 30 * time.Second

// DefaultMaxTokens is enough for a one-line commit subject.
const DefaultMaxTokens = 100

// apiKeyEnv lists the environment variables consulted per provider, in order.
var apiKeyEnv = map[ProviderType][]string{
	ProviderTypeAnthropic: {"ANTHROPIC_API_KEY"},
	ProviderTypeOpenAI:    {"OPENAI_API_KEY"},
	ProviderTypeGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// autoOrder is the order in which "auto" looks for credentials.
var autoOrder = []ProviderType{ProviderTypeAnthropic, ProviderTypeOpenAI, ProviderTypeGemini}

// lookupEnv is replaceable in tests.
var lookupEnv = os.Getenv

// New builds the Generator described by cfg. With ProviderTypeAuto the first
// provider that has credentials is used.
func New(cfg Config) (Generator, error) {
	cfg = applyDefaults(cfg)

	switch cfg.Provider {
	case ProviderTypeNone:
		return nil, ErrDisabled
	case ProviderTypeAuto:
		for _, p := range autoOrder {
			if apiKeyFor(p, "") != "" {
				cfg.Provider = p
				return New(cfg)
			}
		}
		return nil, ErrMissingCredentials
	}

	key := apiKeyFor(cfg.Provider, cfg.APIKey)
	if _, known := apiKeyEnv[cfg.Provider]; !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, cfg.Provider)
	}
	cfg.APIKey = key

	var (
		gen Generator
		err error
	)
	switch cfg.Provider {
	case ProviderTypeAnthropic:
		gen, err = NewAnthropicGenerator(cfg)
	case ProviderTypeOpenAI:
		gen, err = NewOpenAIGenerator(cfg)
	case ProviderTypeGemini:
		gen, err = NewGeminiGenerator(cfg)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(gen, cfg.Timeout), nil
}

func applyDefaults(cfg Config) Config {
	cfg.Provider = ProviderType(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	if cfg.Provider == "" {
		cfg.Provider = ProviderTypeAuto
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return cfg
}

// apiKeyFor returns explicit if set, otherwise the first non-empty
// environment variable for the provider.
func apiKeyFor(p ProviderType, explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range apiKeyEnv[p] {
		if v := lookupEnv(name); v != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// Timeout
// =============================================================================

type timeoutGenerator struct {
	inner   Generator
	timeout time.Duration
}

// WithTimeout bounds every Generate call on g to timeout.
func WithTimeout(g Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return g
	}
	return &timeoutGenerator{inner: g, timeout: timeout}
}

func (t *timeoutGenerator) Name() string {
	return t.inner.Name()
}

func (t *timeoutGenerator) Generate(ctx context.Context, systemRole, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, systemRole, prompt)
}
