// AnalysisClient - one prompt in, raw reply text out.
//
// Information Hiding:
// - Credential lookup at call time
// - Provider construction, reused while the credential is unchanged
// - The fixed retry schedule and per-attempt logging

package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/richinex/lexiread/internal/logging"
	"github.com/richinex/lexiread/internal/metrics"
)

// CredentialStore resolves a named secret. Looked up on every request so a
// key added after startup is picked up without a restart.
type CredentialStore interface {
	Credential(name string) (string, bool)
}

// CredentialFunc adapts a function to CredentialStore.
type CredentialFunc func(name string) (string, bool)

// Credential implements CredentialStore.
func (f CredentialFunc) Credential(name string) (string, bool) {
	return f(name)
}

// ProviderFactory builds a provider for an API key.
type ProviderFactory func(apiKey string) (Provider, error)

// AnalysisClient sends prompts to the configured backend.
type AnalysisClient struct {
	factory        ProviderFactory
	creds          CredentialStore
	credentialName string
	policy         RetryPolicy
	sleep          SleepFunc
	logger         logging.Logger
	metrics        *metrics.Metrics

	mu       sync.Mutex
	provider Provider
	keyInUse string
}

// ClientOption configures an AnalysisClient.
type ClientOption func(*AnalysisClient)

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *AnalysisClient) { c.policy = policy }
}

// WithSleep replaces ContextSleep, mainly for tests.
func WithSleep(sleep SleepFunc) ClientOption {
	return func(c *AnalysisClient) { c.sleep = sleep }
}

// WithLogger sets the client logger.
func WithLogger(logger logging.Logger) ClientOption {
	return func(c *AnalysisClient) { c.logger = logger }
}

// WithMetrics records per-attempt counters.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *AnalysisClient) { c.metrics = m }
}

// NewAnalysisClient creates a client that reads credentialName from creds
// and builds providers through factory.
func NewAnalysisClient(factory ProviderFactory, creds CredentialStore, credentialName string, opts ...ClientOption) *AnalysisClient {
	c := &AnalysisClient{
		factory:        factory,
		creds:          creds,
		credentialName: credentialName,
		policy:         DefaultRetryPolicy(),
		sleep:          ContextSleep,
		logger:         logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request sends prompt with an optional system instruction and returns the
// reply text unparsed. structured asks for a JSON object reply.
func (c *AnalysisClient) Request(ctx context.Context, prompt, systemInstruction string, structured bool) (string, error) {
	provider, err := c.resolveProvider()
	if err != nil {
		return "", err
	}

	messages := make([]ChatMessage, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, SystemMessage(systemInstruction))
	}
	messages = append(messages, UserMessage(prompt))

	var format *ResponseFormat
	if structured {
		format = NewJSONObjectFormat()
	}

	log := c.logger.With(logging.String("provider", provider.Name()), logging.String("model", provider.Model()))
	hook := func(attempt int, err error) {
		c.metrics.BackendAttempt(provider.Name(), "failure")
		log.Warn("backend attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.policy.MaxAttempts()),
			logging.Err(err))
	}

	return Retry(ctx, c.policy, c.sleep, hook, func(ctx context.Context, attempt int) (string, error) {
		resp, err := provider.Complete(ctx, messages, format)
		if err != nil {
			return "", err
		}
		c.metrics.BackendAttempt(provider.Name(), "success")
		log.Debug("backend attempt succeeded", logging.Int("attempt", attempt))
		return resp.Content, nil
	})
}

// resolveProvider reads the credential and reuses the cached provider when
// the key has not changed.
func (c *AnalysisClient) resolveProvider() (Provider, error) {
	key, ok := c.creds.Credential(c.credentialName)
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrAuthFailure, c.credentialName)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil && c.keyInUse == key {
		return c.provider, nil
	}

	provider, err := c.factory(key)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}
	c.provider = provider
	c.keyInUse = key
	return provider, nil
}
