package claudecode

import (
	"context"
	"testing"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvider_Name(t *testing.T) {
	p := New(providers.CLIConfig{}, zap.NewNop())
	assert.Equal(t, "claude_code", p.Name())
}

func TestProvider_SupportsEmbedding(t *testing.T) {
	p := New(providers.CLIConfig{}, zap.NewNop())
	assert.False(t, p.SupportsEmbedding())
}

func TestProvider_Embed_Unsupported(t *testing.T) {
	p := New(providers.CLIConfig{}, zap.NewNop())
	_, err := p.Embed(context.Background(), "", []string{"x"})
	require.Error(t, err)
	assert.Equal(t, llm.ErrModelNotFound, llm.GetErrorCode(err))
}

func TestProvider_Probe_MissingBinary(t *testing.T) {
	p := New(providers.CLIConfig{Command: "definitely-not-a-real-cli-binary"}, zap.NewNop())
	ok, err := p.Probe(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
