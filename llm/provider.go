// Package llm provides the analysis backend abstraction.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Mapping backend failures onto ErrAuthFailure and ErrNetworkFailure
//
// Retry and credential lookup live in AnalysisClient, not in providers.

package llm

import (
	"context"
)

// Provider defines the interface for chat-completion backends.
type Provider interface {
	// Name returns the provider name (for logging/metrics).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends one chat completion request. A non-nil format asks the
	// backend for a JSON object reply. Errors are *BackendError values.
	Complete(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error)
}
