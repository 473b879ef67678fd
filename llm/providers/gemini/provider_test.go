package gemini

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvider_Name(t *testing.T) {
	p := New(providers.GeminiConfig{}, zap.NewNop())
	assert.Equal(t, "gemini", p.Name())
}

func TestProvider_SupportsEmbedding(t *testing.T) {
	p := New(providers.GeminiConfig{}, zap.NewNop())
	assert.True(t, p.SupportsEmbedding())
}

func TestProvider_DefaultBaseURL(t *testing.T) {
	cfg := providers.GeminiConfig{BaseProviderConfig: providers.BaseProviderConfig{APIKey: "test-key"}}
	p := New(cfg, zap.NewNop())
	assert.NotNil(t, p)
}

func TestProvider_RateLimitRPM_FlashLite(t *testing.T) {
	p := New(providers.GeminiConfig{}, zap.NewNop())
	assert.Equal(t, rpmFlashLite, p.RateLimitRPM("gemini-2.0-flash-lite"))
	assert.Equal(t, rpmFlashLite8B, p.RateLimitRPM("gemini-1.5-flash-8b"))
}

func TestProvider_RateLimitRPM_APIKeyDefault(t *testing.T) {
	p := New(providers.GeminiConfig{BaseProviderConfig: providers.BaseProviderConfig{APIKey: "k"}}, zap.NewNop())
	assert.Equal(t, rpmAPIKeyDefault, p.RateLimitRPM("gemini-2.0-pro"))
}

func TestProvider_Probe_NoCredentials(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_OAUTH_CREDS_PATH", "/nonexistent/path.json")
	p := New(providers.GeminiConfig{}, zap.NewNop())
	ok, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProvider_Probe_APIKeyPresent(t *testing.T) {
	p := New(providers.GeminiConfig{BaseProviderConfig: providers.BaseProviderConfig{APIKey: "test-key"}}, zap.NewNop())
	ok, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProvider_Chat_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping integration test")
	}

	p := New(providers.GeminiConfig{
		BaseProviderConfig: providers.BaseProviderConfig{
			APIKey:  apiKey,
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
	}, zap.NewNop())

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		User:      "Say 'test' only",
		MaxTokens: 10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
}
