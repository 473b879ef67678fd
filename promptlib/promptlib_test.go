package promptlib

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_DMQRGeneration(t *testing.T) {
	out, err := Render("dmqr_generation", struct {
		OriginalQuery string
		DomainContext string
		Strategies    string
	}{OriginalQuery: "how does login work", DomainContext: "auth service", Strategies: "a, b, c"})
	require.NoError(t, err)
	assert.Contains(t, out, "how does login work")
	assert.Contains(t, out, "auth service")
	assert.Contains(t, out, "a, b, c")
}

func TestRender_DMQRGeneration_OmitsEmptyDomainContext(t *testing.T) {
	out, err := Render("dmqr_generation", struct {
		OriginalQuery string
		DomainContext string
		Strategies    string
	}{OriginalQuery: "q", Strategies: "x"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Domain context:")
}

func TestRender_Reflection(t *testing.T) {
	out, err := Render("reflection", struct {
		Query       string
		SourceCount int
	}{Query: "q", SourceCount: 4})
	require.NoError(t, err)
	assert.Contains(t, out, "4 context items")
	assert.Contains(t, out, `"decision"`)
}

func TestRender_AnswerSynthesis_RendersEachSource(t *testing.T) {
	type source struct {
		Index    int
		FilePath string
		Snippet  string
	}
	out, err := Render("answer_synthesis", struct {
		Query        string
		Sources      []source
		TotalSources int
	}{
		Query: "q",
		Sources: []source{
			{Index: 1, FilePath: "a.go", Snippet: "alpha"},
			{Index: 2, FilePath: "b.go", Snippet: "beta"},
		},
		TotalSources: 2,
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "[1] a.go: alpha"))
	assert.True(t, strings.Contains(out, "[2] b.go: beta"))
	assert.Contains(t, out, "N in [1, 2]")
}

func TestRender_UnknownTemplateErrors(t *testing.T) {
	_, err := Render("does_not_exist", nil)
	assert.Error(t, err)
}

func TestNew_ParsesAllEmbeddedTemplates(t *testing.T) {
	lib, err := New()
	require.NoError(t, err)
	require.NotNil(t, lib)

	for _, name := range []string{
		"dmqr_generation", "reflection", "corrective_search",
		"answer_synthesis", "verification", "ai_filtering",
		"gap_analysis", "expansion_suggestion",
	} {
		_, err := lib.Render(name, map[string]any{
			"Query": "q", "OriginalQuery": "q", "Strategies": "s",
			"Sources": nil, "Items": nil, "TotalSources": 0,
			"SourceCount": 0, "Answer": "a",
		})
		assert.NoError(t, err, "template %s should render with generic data", name)
	}
}
