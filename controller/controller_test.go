package controller

import (
	"context"
	"testing"
	"time"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/retrieval"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEmbeddings struct {
	chunks []retrieval.CodeChunk
}

func (s *stubEmbeddings) RetrieveSimilarCodeChunks(ctx context.Context, agentId types.AgentId, query string, topK int, targetPaths []string) ([]retrieval.CodeChunk, error) {
	if topK < len(s.chunks) {
		return s.chunks[:topK], nil
	}
	return s.chunks, nil
}

type stubWebSearchController struct {
	results []retrieval.WebResult
	calls   int
}

func (s *stubWebSearchController) Search(ctx context.Context, query string) ([]retrieval.WebResult, error) {
	s.calls++
	return s.results, nil
}

func buildRetriever(highRelevance bool) *retrieval.Retriever {
	content := "package auth; func Login() { /* structure responsibility interaction invariant */ }"
	emb := &stubEmbeddings{chunks: []retrieval.CodeChunk{
		{FilePathRelative: "auth/login.go", ChunkText: content},
	}}
	r := retrieval.NewRetriever(emb, nil, nil, nil, nil, retrieval.NewCache(10, time.Minute), retrieval.DefaultConfig(), zap.NewNop())
	return r
}

func TestController_Decide_HighQualityGuardrailForcesAnswer(t *testing.T) {
	c := NewController(buildRetriever(true), nil, nil, DefaultConfig(), zap.NewNop())

	decision, reason := c.decide(context.Background(), 1, 0.9, 0, "q", nil, types.IntentGeneralQuery)
	assert.Equal(t, DecisionAnswer, decision)
	assert.Equal(t, "quality_threshold", reason)
}

func TestController_Decide_QualityAndTurnGuardrailForcesAnswer(t *testing.T) {
	c := NewController(buildRetriever(true), nil, nil, DefaultConfig(), zap.NewNop())

	decision, reason := c.decide(context.Background(), 3, 0.75, 0, "q", nil, types.IntentGeneralQuery)
	assert.Equal(t, DecisionAnswer, decision)
	assert.Equal(t, "quality_and_turn_threshold", reason)
}

func TestController_Decide_SourceCountGuardrailForcesAnswer(t *testing.T) {
	c := NewController(buildRetriever(true), nil, nil, DefaultConfig(), zap.NewNop())

	decision, reason := c.decide(context.Background(), 1, 0.65, 12, "q", nil, types.IntentGeneralQuery)
	assert.Equal(t, DecisionAnswer, decision)
	assert.Equal(t, "source_count_threshold", reason)
}

func TestController_Run_AccumulatesAndTerminates(t *testing.T) {
	c := NewController(buildRetriever(true), nil, nil, DefaultConfig(), zap.NewNop())

	session := c.Run(context.Background(), "agent-1", "how is login structured", types.RetrievalOptions{Intent: types.IntentUnderstand})
	require.NotEmpty(t, session.Turns)
	last := session.Turns[len(session.Turns)-1]
	assert.Equal(t, string(DecisionAnswer), splitDecision(last.Decision))
	assert.NotEmpty(t, session.Sources)
}

func TestController_Run_NoCollaboratorsStillTerminates(t *testing.T) {
	c := NewController(nil, nil, nil, DefaultConfig(), zap.NewNop())

	session := c.Run(context.Background(), "agent-1", "anything", types.RetrievalOptions{})
	require.NotEmpty(t, session.Turns)
	assert.LessOrEqual(t, len(session.Turns), DefaultConfig().MaxIterations)
}

func TestController_Run_MaxIterationsGuardrailEventuallyForcesAnswer(t *testing.T) {
	emb := &stubEmbeddings{} // empty chunks, no KG: quality stays at 0
	r := retrieval.NewRetriever(emb, nil, nil, nil, nil, retrieval.NewCache(10, time.Minute), retrieval.DefaultConfig(), zap.NewNop())
	cfg := DefaultConfig()
	cfg.MaxIterations = 2
	c := NewController(r, nil, nil, cfg, zap.NewNop())

	session := c.Run(context.Background(), "agent-1", "obscure query", types.RetrievalOptions{})
	require.NotEmpty(t, session.Turns)
	last := session.Turns[len(session.Turns)-1]
	assert.Equal(t, string(DecisionAnswer), splitDecision(last.Decision))
	assert.LessOrEqual(t, last.Turn, cfg.MaxIterations)
}

func TestComputeQuality_EmptyItemsIsZero(t *testing.T) {
	q := computeQuality(nil, types.IntentGeneralQuery)
	assert.Equal(t, 0.0, q)
}

func TestComputeQuality_FullCoverageAndRelevanceIsHigh(t *testing.T) {
	items := []types.RetrievedContextItem{
		{Content: "structure responsibility interaction invariant", Relevance: 1.0, FilePath: "a.go"},
	}
	q := computeQuality(items, types.IntentUnderstand)
	assert.Greater(t, q, 0.9)
}

func TestAspectCoverage_UnknownIntentIsFullyCovered(t *testing.T) {
	cov := aspectCoverage(nil, types.QueryIntent("unregistered"))
	assert.Equal(t, 1.0, cov)
}

func TestDedupItems_RemovesRepeatsAcrossTurns(t *testing.T) {
	items := []types.RetrievedContextItem{
		{FilePath: "a.go", Content: "same"},
		{FilePath: "a.go", Content: "same"},
		{FilePath: "b.go", Content: "different"},
	}
	out := dedupItems(items)
	assert.Len(t, out, 2)
}

type fakeReflectProvider struct {
	name    string
	content string
}

func (p *fakeReflectProvider) Name() string                                     { return p.name }
func (p *fakeReflectProvider) SupportsEmbedding() bool                          { return false }
func (p *fakeReflectProvider) Probe(ctx context.Context) (bool, error)          { return true, nil }
func (p *fakeReflectProvider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return nil, nil
}
func (p *fakeReflectProvider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return llm.ChatResponse{Content: p.content, Provider: "fake"}, nil
}

func buildWebDecisionRouter(t *testing.T) *router.Router {
	t.Helper()
	provider := &fakeReflectProvider{name: "reflector", content: `{"decision":"web"}`}
	reg := llm.NewRegistry(context.Background(), []llm.RegistryEntry{{
		Info:     types.ModelInfo{Name: "reflector", Provider: types.ProviderGemini, Capability: types.CapabilitySimple, CostTier: types.CostFree},
		Provider: provider,
	}}, zap.NewNop())
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskReflection: {TaskType: types.TaskReflection, PreferredModel: "reflector"},
	}
	return router.NewRouter(reg, rules, zap.NewNop())
}

func TestIsCodebaseIntrospection(t *testing.T) {
	cases := []struct {
		intent types.QueryIntent
		want   bool
	}{
		{types.IntentGeneralQuery, false},
		{types.IntentFindExample, true},
		{types.IntentRefactorCode, true},
		{types.IntentDebugError, true},
		{types.IntentAddFeature, true},
		{types.IntentUnderstand, true},
		{types.QueryIntent(""), true},
		{types.QueryIntent("unrecognized"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isCodebaseIntrospection(tc.intent), "intent=%q", tc.intent)
	}
}

func TestController_Decide_WebForbiddenForCodebaseIntrospection(t *testing.T) {
	rtr := buildWebDecisionRouter(t)
	c := NewController(buildRetriever(false), nil, rtr, DefaultConfig(), zap.NewNop())

	decision, reason := c.decide(context.Background(), 1, 0.1, 0, "how does auth/login.go work", nil, types.IntentUnderstand)
	assert.Equal(t, DecisionCorrect, decision)
	assert.Equal(t, "web_forbidden_codebase_introspection", reason)
}

func TestController_Decide_WebAllowedForGeneralQuery(t *testing.T) {
	rtr := buildWebDecisionRouter(t)
	c := NewController(buildRetriever(false), nil, rtr, DefaultConfig(), zap.NewNop())

	decision, reason := c.decide(context.Background(), 1, 0.1, 0, "what is the latest Go release", nil, types.IntentGeneralQuery)
	assert.Equal(t, DecisionWeb, decision)
	assert.Equal(t, "model_decision", reason)
}

func TestController_Run_StateWeb_CallsWebSearchCollaborator(t *testing.T) {
	emb := &stubEmbeddings{chunks: []retrieval.CodeChunk{{FilePathRelative: "a.go", ChunkText: "func Foo() {}"}}}
	web := &stubWebSearchController{results: []retrieval.WebResult{{Title: "release notes", URL: "https://go.dev/doc", Snippet: "latest release"}}}
	r := retrieval.NewRetriever(emb, nil, nil, web, nil, retrieval.NewCache(10, time.Minute), retrieval.DefaultConfig(), zap.NewNop())
	rtr := buildWebDecisionRouter(t)
	c := NewController(r, nil, rtr, DefaultConfig(), zap.NewNop())

	session := c.Run(context.Background(), "agent-1", "what is the latest Go release", types.RetrievalOptions{Intent: types.IntentGeneralQuery})
	assert.Greater(t, web.calls, 0, "StateWeb should drive a real web search call")

	var sawWeb bool
	for _, src := range session.Sources {
		if src.Source == types.SourceWebSearch {
			sawWeb = true
		}
	}
	assert.True(t, sawWeb, "web search results should be fused into session sources")
}

func TestController_ReflectLLM_DefaultsToPlanOnRouterFailure(t *testing.T) {
	reg := llm.NewRegistry(context.Background(), nil, zap.NewNop())
	rtr := router.NewRouter(reg, nil, zap.NewNop())
	c := NewController(buildRetriever(false), nil, rtr, DefaultConfig(), zap.NewNop())

	decision, reason := c.reflectLLM(context.Background(), "q", nil)
	assert.Equal(t, DecisionPlan, decision)
	assert.NotEmpty(t, reason)
}

func splitDecision(raw string) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return raw[:i]
		}
	}
	return raw
}
