// Package llm provides the unified provider abstraction every backend
// (gemini, mistral, claude_code, qwen_code) implements, plus the model
// registry built on top of it. The task router lives in package router.
package llm

import (
	"context"
	"time"

	"github.com/rashee1997/orchestrator-sub000/types"
)

// Re-export the shared error vocabulary so callers only need to import llm.
type (
	Error     = types.Error
	ErrorCode = types.ErrorCode
)

const (
	ErrInvalidRequest      = types.ErrInvalidRequest
	ErrAuthentication      = types.ErrAuthentication
	ErrUnauthorized        = types.ErrUnauthorized
	ErrForbidden           = types.ErrForbidden
	ErrRateLimit           = types.ErrRateLimit
	ErrRateLimited         = types.ErrRateLimited
	ErrQuotaExceeded       = types.ErrQuotaExceeded
	ErrModelNotFound       = types.ErrModelNotFound
	ErrModelOverloaded     = types.ErrModelOverloaded
	ErrContextTooLong      = types.ErrContextTooLong
	ErrUpstreamError       = types.ErrUpstreamError
	ErrUpstreamTimeout     = types.ErrUpstreamTimeout
	ErrTimeout             = types.ErrTimeout
	ErrInternalError       = types.ErrInternalError
	ErrServiceUnavailable  = types.ErrServiceUnavailable
	ErrProviderUnavailable = types.ErrProviderUnavailable
	ErrCLIMissing          = types.ErrCLIMissing
	ErrMalformedJSON       = types.ErrMalformedJSON
)

// Provider is the uniform adapter every LLM backend implements. Chat is
// synchronous from the caller's perspective: one prompt in, one reply out,
// no streaming.
type Provider interface {
	// Name returns the provider's registry identifier ("gemini", "mistral",
	// "claude_code", "qwen_code").
	Name() string

	// Chat sends a single-turn completion request and blocks for the reply.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Embed returns one vector per input string. Providers without
	// embedding capability return types.ErrModelNotFound-tagged errors from
	// EmbeddingUnsupported.
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)

	// SupportsEmbedding reports whether Embed is implemented for real.
	SupportsEmbedding() bool

	// Probe performs the availability check described in the provider's
	// auth contract (API key presence, OAuth credential file, CLI
	// --version). It must return quickly (bounded internally) and never
	// panics on a missing credential.
	Probe(ctx context.Context) (bool, error)
}

// ChatRequest is a single-turn completion request: model, optional system
// instruction, user content, and a timeout that callers should set
// explicitly (providers apply their own hard ceiling besides this).
type ChatRequest struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// ChatResponse is the normalized reply from any provider.
type ChatResponse struct {
	Content   string
	Model     string
	Provider  string
	Usage     ChatUsage
	CreatedAt time.Time
}

// ChatUsage captures token accounting, when the backend reports it.
type ChatUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// EmbeddingUnsupported is the canonical error Embed returns for providers
// that have no embedding capability.
func EmbeddingUnsupported(provider string) error {
	return types.NewError(types.ErrModelNotFound, "provider does not support embeddings").
		WithProvider(provider).
		WithRetryable(false)
}

// IsRetryable reports whether err carries a retryable *types.Error.
func IsRetryable(err error) bool {
	return types.IsRetryable(err)
}

// GetErrorCode extracts the ErrorCode from err, or "" if err is not a
// *types.Error.
func GetErrorCode(err error) ErrorCode {
	return types.GetErrorCode(err)
}

// IsAuthError reports whether err represents a missing/invalid-credential
// condition (as opposed to a transient provider failure).
func IsAuthError(err error) bool {
	return types.IsAuthError(err)
}
