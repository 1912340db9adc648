// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Settings holds all application configuration.
type Settings struct {
	LLM    LLMConfig
	Store  StoreConfig
	Log    LogConfig
	Server ServerConfig
}

// LLMConfig holds analysis backend configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float64
	// APIKeyEnv names the credential looked up on every request.
	APIKeyEnv string
}

// StoreConfig selects the durable phrase store.
type StoreConfig struct {
	Backend   string // sqlite, bolt, redis or memory
	Path      string
	RedisAddr string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
	baseURLEnv   string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY", "OPENAI_BASE_URL"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY", "DEEPSEEK_BASE_URL"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY", "GEMINI_BASE_URL"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

var storeBackends = map[string]bool{"sqlite": true, "bolt": true, "redis": true, "memory": true}

// DefaultProvider is used when neither the caller nor LEXIREAD_PROVIDER names one.
const DefaultProvider = "openai"

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to LEXIREAD_PROVIDER, then DefaultProvider.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = getEnvString("LEXIREAD_PROVIDER", DefaultProvider)
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	backend := strings.ToLower(getEnvString("LEXIREAD_STORE", "sqlite"))
	if !storeBackends[backend] {
		return Settings{}, fmt.Errorf("invalid value for LEXIREAD_STORE: %q", backend)
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       getEnvString(info.modelEnv, info.defaultModel),
			BaseURL:     os.Getenv(info.baseURLEnv),
			MaxTokens:   maxTokens,
			Temperature: temperature,
			APIKeyEnv:   info.apiKeyEnv,
		},
		Store: StoreConfig{
			Backend:   backend,
			Path:      getEnvString("LEXIREAD_DB", defaultStorePath(backend)),
			RedisAddr: getEnvString("LEXIREAD_REDIS_ADDR", "localhost:6379"),
		},
		Log: LogConfig{
			Level:  getEnvString("LEXIREAD_LOG_LEVEL", "info"),
			Format: getEnvString("LEXIREAD_LOG_FORMAT", "console"),
		},
		Server: ServerConfig{
			Addr: getEnvString("LEXIREAD_ADDR", ":8080"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// defaultStorePath puts the phrase store under ~/.lexiread.
func defaultStorePath(backend string) string {
	name := "phrases.db"
	if backend == "bolt" {
		name = "phrases.bolt"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".lexiread", name)
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyEnvFor returns the credential name for a provider.
func APIKeyEnvFor(provider string) (string, error) {
	info, err := getProviderInfo(normalizeProvider(provider))
	if err != nil {
		return "", err
	}
	return info.apiKeyEnv, nil
}

// SupportedProviders returns the supported provider names, sorted.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// EnvCredentials resolves credentials from the process environment at call
// time, so a key exported after startup is picked up.
type EnvCredentials struct{}

// Credential returns the trimmed value of the environment variable name.
func (EnvCredentials) Credential(name string) (string, bool) {
	val, ok := os.LookupEnv(name)
	val = strings.TrimSpace(val)
	return val, ok && val != ""
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}
