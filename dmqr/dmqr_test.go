package dmqr

import (
	"context"
	"testing"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name   string
	chatFn func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
}

func (p *fakeProvider) Name() string           { return p.name }
func (p *fakeProvider) SupportsEmbedding() bool { return false }
func (p *fakeProvider) Probe(ctx context.Context) (bool, error) {
	return true, nil
}
func (p *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return p.chatFn(ctx, req)
}
func (p *fakeProvider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return nil, llm.EmbeddingUnsupported(p.name)
}

func buildRouter(t *testing.T, content string, err error) *router.Router {
	t.Helper()
	provider := &fakeProvider{name: "dmqr-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		if err != nil {
			return llm.ChatResponse{}, err
		}
		return llm.ChatResponse{Content: content}, nil
	}}
	reg := llm.NewRegistry(context.Background(), []llm.RegistryEntry{
		{Info: types.ModelInfo{Name: "dmqr-model", Capability: types.CapabilitySimple, CostTier: types.CostFree}, Provider: provider},
	}, zap.NewNop())
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskDMQRGeneration: {TaskType: types.TaskDMQRGeneration, PreferredModel: "dmqr-model"},
	}
	return router.NewRouter(reg, rules, zap.NewNop())
}

func TestGenerator_Generate_ParsesWellFormedResponse(t *testing.T) {
	content := `{"queries":[
		{"text":"how is auth structured","strategy":"architectural_overview","intent":"understand_code"},
		{"text":"what calls the login handler","strategy":"component_relationships","intent":"understand_code"},
		{"text":"how are login errors handled","strategy":"error_handling","intent":"debug_error"}
	],"coverage_assessment":"covers overview, relationships, and error handling"}`
	g := NewGenerator(buildRouter(t, content, nil))

	result, err := g.Generate(context.Background(), GenerateRequest{OriginalQuery: "how does login work"})
	require.NoError(t, err)
	require.Len(t, result.Queries, 3)
	assert.Equal(t, "architectural_overview", result.Queries[0].Strategy)
	assert.Equal(t, types.IntentDebugError, result.Queries[2].Intent)
	assert.NotEmpty(t, result.CoverageAssessment)
}

func TestGenerator_Generate_ClampsAboveFive(t *testing.T) {
	content := `{"queries":[
		{"text":"q1","strategy":"architectural_overview"},
		{"text":"q2","strategy":"component_relationships"},
		{"text":"q3","strategy":"implementation_deep_dive"},
		{"text":"q4","strategy":"data_flow"},
		{"text":"q5","strategy":"error_handling"},
		{"text":"q6","strategy":"performance"},
		{"text":"q7","strategy":"security"}
	],"coverage_assessment":"covers everything"}`
	g := NewGenerator(buildRouter(t, content, nil))

	result, err := g.Generate(context.Background(), GenerateRequest{OriginalQuery: "q"})
	require.NoError(t, err)
	assert.Len(t, result.Queries, maxQueries)
}

func TestGenerator_Generate_PadsBelowMinimum(t *testing.T) {
	content := `{"queries":[{"text":"only one","strategy":"data_flow"}],"coverage_assessment":"partial"}`
	g := NewGenerator(buildRouter(t, content, nil))

	result, err := g.Generate(context.Background(), GenerateRequest{OriginalQuery: "q"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(result.Queries), minQueries)
}

func TestGenerator_Generate_UnknownStrategyNormalized(t *testing.T) {
	content := `{"queries":[
		{"text":"q1","strategy":"not_a_real_axis"},
		{"text":"q2","strategy":"performance"}
	],"coverage_assessment":"n/a"}`
	g := NewGenerator(buildRouter(t, content, nil))

	result, err := g.Generate(context.Background(), GenerateRequest{OriginalQuery: "q"})
	require.NoError(t, err)
	assert.Equal(t, "implementation_deep_dive", result.Queries[0].Strategy)
}

func TestGenerator_Generate_RouterErrorFallsBackGracefully(t *testing.T) {
	g := NewGenerator(buildRouter(t, "", types.NewError(types.ErrTaskFailed, "no models")))

	result, err := g.Generate(context.Background(), GenerateRequest{OriginalQuery: "how does login work"})
	require.NoError(t, err)
	require.Len(t, result.Queries, 2)
	assert.Equal(t, "how does login work", result.Queries[0].Text)
}

func TestGenerator_Generate_MalformedJSONFallsBack(t *testing.T) {
	g := NewGenerator(buildRouter(t, "not json at all", nil))

	result, err := g.Generate(context.Background(), GenerateRequest{OriginalQuery: "original"})
	require.NoError(t, err)
	assert.Equal(t, fallbackResult("original"), result)
}

func TestGenerator_Generate_NilRouterFallsBack(t *testing.T) {
	g := NewGenerator(nil)

	result, err := g.Generate(context.Background(), GenerateRequest{OriginalQuery: "original"})
	require.NoError(t, err)
	assert.Equal(t, fallbackResult("original"), result)
}

func TestMergeByNameAndType_UnionsObservationsAndProvenance(t *testing.T) {
	results := map[string][]NamedEntity{
		"architectural_overview": {
			{Name: "UserService", EntityType: "class", Observations: []string{"handles auth"}},
		},
		"error_handling": {
			{Name: "UserService", EntityType: "class", Observations: []string{"wraps login errors"}},
			{Name: "LoginError", EntityType: "type", Observations: []string{"custom error type"}},
		},
	}

	merged := MergeByNameAndType(results)
	require.Len(t, merged, 2)

	var userService *NamedEntity
	for i := range merged {
		if merged[i].Name == "UserService" {
			userService = &merged[i]
		}
	}
	require.NotNil(t, userService)
	assert.ElementsMatch(t, []string{"handles auth", "wraps login errors"}, userService.Observations)
	assert.ElementsMatch(t, []string{"architectural_overview", "error_handling"}, userService.Sources)
}

func TestMergeByNameAndType_EmptyInput(t *testing.T) {
	merged := MergeByNameAndType(map[string][]NamedEntity{})
	assert.Empty(t, merged)
}
