package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	name        string
	chatFn      func(ctx context.Context, req ChatRequest) (ChatResponse, error)
	embedFn     func(ctx context.Context, model string, inputs []string) ([][]float32, error)
	supportsEmb bool
	probeFn     func(ctx context.Context) (bool, error)
}

func (p *stubProvider) Name() string               { return p.name }
func (p *stubProvider) SupportsEmbedding() bool     { return p.supportsEmb }
func (p *stubProvider) Probe(ctx context.Context) (bool, error) {
	if p.probeFn != nil {
		return p.probeFn(ctx)
	}
	return true, nil
}
func (p *stubProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return p.chatFn(ctx, req)
}
func (p *stubProvider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return p.embedFn(ctx, model, inputs)
}

func TestResilientProvider_Name(t *testing.T) {
	p := &stubProvider{name: "test-provider"}
	rp := NewResilientProvider(p, nil, zap.NewNop())
	assert.Equal(t, "test-provider", rp.Name())
}

func TestResilientProvider_Chat_PassesThroughSuccess(t *testing.T) {
	p := &stubProvider{
		name: "test-provider",
		chatFn: func(ctx context.Context, req ChatRequest) (ChatResponse, error) {
			return ChatResponse{Content: "hello", Provider: "test-provider"}, nil
		},
	}
	rp := NewResilientProvider(p, nil, zap.NewNop())
	resp, err := rp.Chat(context.Background(), ChatRequest{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
}

func TestResilientProvider_Chat_PropagatesFailure(t *testing.T) {
	wantErr := errors.New("boom")
	p := &stubProvider{
		name: "test-provider",
		chatFn: func(ctx context.Context, req ChatRequest) (ChatResponse, error) {
			return ChatResponse{}, wantErr
		},
	}
	rp := NewResilientProvider(p, nil, zap.NewNop())
	_, err := rp.Chat(context.Background(), ChatRequest{User: "hi"})
	require.Error(t, err)
}

func TestResilientProvider_Embed_PassesThrough(t *testing.T) {
	p := &stubProvider{
		name:        "test-provider",
		supportsEmb: true,
		embedFn: func(ctx context.Context, model string, inputs []string) ([][]float32, error) {
			return [][]float32{{1, 2, 3}}, nil
		},
	}
	rp := NewResilientProvider(p, nil, zap.NewNop())
	vecs, err := rp.Embed(context.Background(), "m", []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
}
