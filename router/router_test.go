package router

import (
	"context"
	"testing"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name        string
	supportsEmb bool
	chatFn      func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
	calls       int
}

func (p *fakeProvider) Name() string               { return p.name }
func (p *fakeProvider) SupportsEmbedding() bool     { return p.supportsEmb }
func (p *fakeProvider) Probe(ctx context.Context) (bool, error) { return true, nil }
func (p *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	p.calls++
	return p.chatFn(ctx, req)
}
func (p *fakeProvider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return nil, llm.EmbeddingUnsupported(p.name)
}

func buildRegistry(t *testing.T, entries ...llm.RegistryEntry) *llm.Registry {
	t.Helper()
	return llm.NewRegistry(context.Background(), entries, zap.NewNop())
}

func TestRouter_Execute_PreferredModelSucceeds(t *testing.T) {
	preferred := &fakeProvider{name: "preferred-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{Content: "ok", Provider: "gemini"}, nil
	}}
	reg := buildRegistry(t, llm.RegistryEntry{
		Info:     types.ModelInfo{Name: "preferred-model", Provider: types.ProviderGemini, Capability: types.CapabilitySimple, CostTier: types.CostFree},
		Provider: preferred,
	})
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskSimpleQA: {TaskType: types.TaskSimpleQA, PreferredModel: "preferred-model"},
	}
	r := NewRouter(reg, rules, zap.NewNop())

	result, err := r.Execute(context.Background(), types.TaskSimpleQA, "hello", ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
	assert.Equal(t, "preferred-model", result.ModelUsed)
	assert.Equal(t, 1, preferred.calls)
}

func TestRouter_Execute_FallsBackOnTransientFailure(t *testing.T) {
	failing := &fakeProvider{name: "flaky-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{}, types.NewError(types.ErrUpstreamError, "boom").WithRetryable(true)
	}}
	fallback := &fakeProvider{name: "fallback-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{Content: "fallback ok"}, nil
	}}
	reg := buildRegistry(t,
		llm.RegistryEntry{Info: types.ModelInfo{Name: "flaky-model", Capability: types.CapabilitySimple, CostTier: types.CostFree}, Provider: failing},
		llm.RegistryEntry{Info: types.ModelInfo{Name: "fallback-model", Capability: types.CapabilitySimple, CostTier: types.CostFree}, Provider: fallback},
	)
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskSimpleQA: {TaskType: types.TaskSimpleQA, PreferredModel: "flaky-model", FallbackModels: []string{"fallback-model"}},
	}
	r := NewRouter(reg, rules, zap.NewNop())

	result, err := r.Execute(context.Background(), types.TaskSimpleQA, "hello", ExecuteOptions{MaxRetries: 1})
	require.NoError(t, err)
	assert.Equal(t, "fallback ok", result.Content)
	assert.Equal(t, "fallback-model", result.ModelUsed)
}

func TestRouter_Execute_AllModelsFail(t *testing.T) {
	failing := &fakeProvider{name: "only-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{}, types.NewError(types.ErrUpstreamError, "boom").WithRetryable(false)
	}}
	reg := buildRegistry(t, llm.RegistryEntry{
		Info:     types.ModelInfo{Name: "only-model", Capability: types.CapabilitySimple, CostTier: types.CostFree},
		Provider: failing,
	})
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskSimpleQA: {TaskType: types.TaskSimpleQA, PreferredModel: "only-model"},
	}
	r := NewRouter(reg, rules, zap.NewNop())

	_, err := r.Execute(context.Background(), types.TaskSimpleQA, "hello", ExecuteOptions{MaxRetries: 1})
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskFailed, llm.GetErrorCode(err))
}

func TestRouter_Execute_AuthErrorMarksModelUnavailable(t *testing.T) {
	unauth := &fakeProvider{name: "bad-auth-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{}, types.NewError(types.ErrAuthentication, "missing key").WithRetryable(false)
	}}
	reg := buildRegistry(t, llm.RegistryEntry{
		Info:     types.ModelInfo{Name: "bad-auth-model", Capability: types.CapabilitySimple, CostTier: types.CostFree},
		Provider: unauth,
	})
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskSimpleQA: {TaskType: types.TaskSimpleQA, PreferredModel: "bad-auth-model"},
	}
	r := NewRouter(reg, rules, zap.NewNop())

	_, err := r.Execute(context.Background(), types.TaskSimpleQA, "hello", ExecuteOptions{MaxRetries: 3})
	require.Error(t, err)
	assert.Equal(t, 1, unauth.calls, "auth failure must not be retried against the same model")

	entry, ok := reg.Get("bad-auth-model")
	require.True(t, ok)
	assert.False(t, entry.Info.Available)
}

func TestRouter_Execute_JSONRepairPostProcessing(t *testing.T) {
	messy := &fakeProvider{name: "json-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{Content: "```json\n{\"a\": 1,}\n```"}, nil
	}}
	reg := buildRegistry(t, llm.RegistryEntry{
		Info:     types.ModelInfo{Name: "json-model", Capability: types.CapabilitySimple, CostTier: types.CostFree},
		Provider: messy,
	})
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskJSONExtraction: {TaskType: types.TaskJSONExtraction, PreferredModel: "json-model"},
	}
	r := NewRouter(reg, rules, zap.NewNop())

	result, err := r.Execute(context.Background(), types.TaskJSONExtraction, "extract", ExecuteOptions{})
	require.NoError(t, err)
	assert.True(t, result.JSONRepaired)
	assert.JSONEq(t, `{"a": 1}`, result.Content)
}

func TestRouter_Execute_NoCandidatesReturnsTaskFailed(t *testing.T) {
	reg := buildRegistry(t)
	r := NewRouter(reg, nil, zap.NewNop())

	_, err := r.Execute(context.Background(), types.TaskSimpleQA, "hello", ExecuteOptions{})
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskFailed, llm.GetErrorCode(err))
}
