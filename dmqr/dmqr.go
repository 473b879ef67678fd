package dmqr

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rashee1997/orchestrator-sub000/jsonrepair"
	"github.com/rashee1997/orchestrator-sub000/promptlib"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/types"
)

const (
	minQueries = 2
	maxQueries = 5
)

// Strategies enumerates the distinct axes DMQR is expected to cover
// across its generated queries.
var Strategies = []string{
	"architectural_overview",
	"component_relationships",
	"implementation_deep_dive",
	"data_flow",
	"error_handling",
	"performance",
	"security",
	"configuration",
}

// GenerateRequest parameterizes one DMQR call.
type GenerateRequest struct {
	OriginalQuery string
	DomainContext string
	Complexity    types.ComplexityTier
	Modalities    []string
}

// Result is DMQR's output: a set of diverse queries plus a prose
// explanation of their collective coverage.
type Result struct {
	Queries            []types.DiverseQuery
	CoverageAssessment string
}

// Generator implements component G.
type Generator struct {
	router *router.Router
}

// NewGenerator wires a router for the DMQR LLM call.
func NewGenerator(rtr *router.Router) *Generator {
	return &Generator{router: rtr}
}

type rawQuery struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
	Intent   string `json:"intent"`
}

type rawResult struct {
	Queries            []rawQuery `json:"queries"`
	CoverageAssessment string     `json:"coverage_assessment"`
}

// Generate expands req.OriginalQuery into N ∈ [2,5] DiverseQuery
// objects. On any LLM or parse failure it degrades to a two-query
// fallback (the original query tagged implementation_deep_dive, plus an
// architectural-overview variant) rather than failing the caller.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (Result, error) {
	if g.router == nil {
		return fallbackResult(req.OriginalQuery), nil
	}

	prompt := buildPrompt(req)
	resp, err := g.router.Execute(ctx, types.TaskDMQRGeneration, prompt, router.ExecuteOptions{ForceJSON: true})
	if err != nil {
		return fallbackResult(req.OriginalQuery), nil
	}

	repaired, ok, _ := jsonrepair.Repair(ctx, resp.Content, nil)
	if !ok {
		return fallbackResult(req.OriginalQuery), nil
	}
	var parsed rawResult
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil || len(parsed.Queries) == 0 {
		return fallbackResult(req.OriginalQuery), nil
	}

	queries := make([]types.DiverseQuery, 0, len(parsed.Queries))
	for _, q := range parsed.Queries {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		queries = append(queries, types.DiverseQuery{
			Text:     q.Text,
			Strategy: normalizeStrategy(q.Strategy),
			Intent:   types.QueryIntent(q.Intent),
		})
	}
	if len(queries) < minQueries {
		queries = append(queries, fallbackResult(req.OriginalQuery).Queries...)
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	return Result{Queries: queries, CoverageAssessment: parsed.CoverageAssessment}, nil
}

func normalizeStrategy(s string) string {
	for _, valid := range Strategies {
		if s == valid {
			return s
		}
	}
	return "implementation_deep_dive"
}

func fallbackResult(originalQuery string) Result {
	return Result{
		Queries: []types.DiverseQuery{
			{Text: originalQuery, Strategy: "implementation_deep_dive", Intent: types.IntentGeneralQuery},
			{Text: "architectural overview relevant to: " + originalQuery, Strategy: "architectural_overview", Intent: types.IntentUnderstand},
		},
		CoverageAssessment: "fallback coverage: implementation and architectural axes only",
	}
}

func buildPrompt(req GenerateRequest) string {
	out, err := promptlib.Render("dmqr_generation", struct {
		OriginalQuery string
		DomainContext string
		Strategies    string
	}{
		OriginalQuery: req.OriginalQuery,
		DomainContext: req.DomainContext,
		Strategies:    strings.Join(Strategies, ", "),
	})
	if err != nil {
		return "Original query: " + req.OriginalQuery
	}
	return out
}

// NamedEntity is the minimal shape the KG-NL query tool's merge step
// needs: enough to dedup by (Name, EntityType) while preserving which
// DMQR-generated query surfaced each entity.
type NamedEntity struct {
	Name         string
	EntityType   string
	Observations []string
	Sources      []string
}

// MergeByNameAndType merges per-query KG results keyed on (name,
// entityType), unioning observations and recording every query strategy
// that surfaced the entity as source provenance.
func MergeByNameAndType(resultsByStrategy map[string][]NamedEntity) []NamedEntity {
	type key struct{ name, entityType string }
	merged := make(map[key]*NamedEntity)
	order := make([]key, 0)

	for strategy, entities := range resultsByStrategy {
		for _, e := range entities {
			k := key{name: e.Name, entityType: e.EntityType}
			existing, ok := merged[k]
			if !ok {
				copyEntity := NamedEntity{Name: e.Name, EntityType: e.EntityType}
				merged[k] = &copyEntity
				existing = merged[k]
				order = append(order, k)
			}
			existing.Observations = unionStrings(existing.Observations, e.Observations)
			existing.Sources = unionStrings(existing.Sources, []string{strategy})
		}
	}

	out := make([]NamedEntity, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
