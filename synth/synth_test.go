package synth

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

func buildSynthRouter(t *testing.T, content string) *router.Router {
	t.Helper()
	provider := &fakeProvider{name: "synth-model", chatFn: func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{Content: content}, nil
	}}
	reg := llm.NewRegistry(context.Background(), []llm.RegistryEntry{
		{Info: types.ModelInfo{Name: "synth-model", Capability: types.CapabilityComplex, CostTier: types.CostFree}, Provider: provider},
	}, zap.NewNop())
	rules := map[types.TaskType]types.TaskDistributionRule{
		types.TaskAnswerSynthesis: {TaskType: types.TaskAnswerSynthesis, PreferredModel: "synth-model"},
		types.TaskVerification:    {TaskType: types.TaskVerification, PreferredModel: "synth-model"},
	}
	return router.NewRouter(reg, rules, zap.NewNop())
}

func sampleSources() []types.RetrievedContextItem {
	return []types.RetrievedContextItem{
		{FilePath: "auth/login.go", Content: "handles login"},
		{FilePath: "auth/session.go", Content: "manages sessions"},
		{FilePath: "auth/token.go", Content: "issues tokens"},
	}
}

func TestSynthesize_ZeroSourcesReturnsInsufficientContext(t *testing.T) {
	s := NewSynthesizer(buildSynthRouter(t, "ignored"), zap.NewNop())

	result, err := s.Synthesize(context.Background(), "how does login work", nil)
	require.NoError(t, err)
	assert.True(t, result.Insufficient)
	assert.Empty(t, result.Citations)
}

func TestSynthesize_ValidCitationsAreCollected(t *testing.T) {
	content := "Login validates credentials [cite_1] and issues a session [cite_2]."
	s := NewSynthesizer(buildSynthRouter(t, content), zap.NewNop())

	result, err := s.Synthesize(context.Background(), "how does login work", sampleSources())
	require.NoError(t, err)
	require.Len(t, result.Citations, 2)
	assert.Equal(t, "auth/login.go", citationFor(result.Citations, 1).FilePath)
	assert.Equal(t, "auth/session.go", citationFor(result.Citations, 2).FilePath)
}

func TestSynthesize_OutOfRangeCitationReportedAsIssueNotError(t *testing.T) {
	content := "Login validates credentials [cite_1] and does something odd [cite_4]."
	s := NewSynthesizer(buildSynthRouter(t, content), zap.NewNop())

	result, err := s.Synthesize(context.Background(), "q", sampleSources())
	require.NoError(t, err)
	found := false
	for _, issue := range result.Issues {
		if containsHallucination(issue) {
			found = true
		}
	}
	assert.True(t, found, "expected a HALLUCINATION_DETECTED issue, got %v", result.Issues)
}

func TestSynthesize_CiteZeroIsIgnoredNotCounted(t *testing.T) {
	content := "Bad reference [cite_0] and a good one [cite_1]."
	s := NewSynthesizer(buildSynthRouter(t, content), zap.NewNop())

	result, err := s.Synthesize(context.Background(), "q", sampleSources())
	require.NoError(t, err)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, 1, result.Citations[0].SourceIndex)
}

func TestSynthesize_LowUtilizationFlagged(t *testing.T) {
	content := "Only one claim [cite_1]."
	s := NewSynthesizer(buildSynthRouter(t, content), zap.NewNop())

	result, err := s.Synthesize(context.Background(), "q", sampleSources())
	require.NoError(t, err)
	assert.Less(t, result.SourceUtilization, minUtilization)
	assert.NotEmpty(t, result.Issues)
}

func TestVerify_RouterFailureDegradesToZeroScores(t *testing.T) {
	s := NewSynthesizer(buildSynthRouter(t, "not json"), zap.NewNop())

	v := s.Verify(context.Background(), "q", AnswerResult{Text: "answer"}, sampleSources())
	assert.True(t, v.NeedsCorrection())
}

func TestVerify_HighScoresDoNotNeedCorrection(t *testing.T) {
	content := `{"claim_support":0.9,"citation_validity":0.9,"completeness":0.9,"coherence":0.9,"technical_accuracy":0.9,"issues":[]}`
	s := NewSynthesizer(buildSynthRouter(t, content), zap.NewNop())

	v := s.Verify(context.Background(), "q", AnswerResult{Text: "answer"}, sampleSources())
	assert.False(t, v.NeedsCorrection())
}

func TestVerify_LowScoreFlagsFailingDimension(t *testing.T) {
	content := `{"claim_support":0.5,"citation_validity":0.9,"completeness":0.9,"coherence":0.9,"technical_accuracy":0.9,"issues":[]}`
	s := NewSynthesizer(buildSynthRouter(t, content), zap.NewNop())

	v := s.Verify(context.Background(), "q", AnswerResult{Text: "answer"}, sampleSources())
	require.True(t, v.NeedsCorrection())
	dims := v.FailingDimensions()
	require.NotEmpty(t, dims)
}

func TestAppendLimitations_AddsSection(t *testing.T) {
	answer := AnswerResult{Text: "original answer"}
	out := AppendLimitations(answer, []string{"claim support low"})
	assert.Contains(t, out.Text, "## Limitations")
	assert.Contains(t, out.Text, "claim support low")
}

func citationFor(citations []types.Citation, n int) types.Citation {
	for _, c := range citations {
		if c.SourceIndex == n {
			return c
		}
	}
	return types.Citation{}
}

func containsHallucination(s string) bool {
	return len(s) >= len("HALLUCINATION_DETECTED") && s[:len("HALLUCINATION_DETECTED")] == "HALLUCINATION_DETECTED"
}
