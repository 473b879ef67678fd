package retrieval

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/rashee1997/orchestrator-sub000/jsonrepair"
	"github.com/rashee1997/orchestrator-sub000/promptlib"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/rrf"
	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

type filterResult struct {
	RelevantIndices []int `json:"relevant_indices"`
}

// aiFilter asks a fast model to pick relevant indices, then enforces the
// documented minimum-retention floor (70% for understand_code queries,
// 50% otherwise) and re-includes any target_file_paths the model dropped
// entirely.
func (r *Retriever) aiFilter(ctx context.Context, items []types.RetrievedContextItem, intent types.QueryIntent, targetFilePaths []string) []types.RetrievedContextItem {
	if len(items) == 0 || r.router == nil {
		return items
	}

	result, err := r.router.Execute(ctx, types.TaskAIFiltering, filterPrompt(items), router.ExecuteOptions{ForceJSON: true})
	if err != nil {
		return items
	}
	var parsed filterResult
	repaired, ok, _ := jsonrepair.Repair(ctx, result.Content, nil)
	if !ok || json.Unmarshal([]byte(repaired), &parsed) != nil {
		return items
	}

	minRetain := 0.5
	if intent == types.IntentUnderstand {
		minRetain = 0.7
	}
	floor := int(float64(len(items)) * minRetain)

	kept := indexSet(parsed.RelevantIndices, len(items))
	if len(kept) < floor {
		kept = topIndicesByScore(items, floor)
	}

	filtered := make([]types.RetrievedContextItem, 0, len(kept))
	keptSet := make(map[int]struct{}, len(kept))
	for _, i := range kept {
		keptSet[i] = struct{}{}
		filtered = append(filtered, items[i])
	}

	if len(targetFilePaths) > 0 {
		for _, item := range items {
			if _, already := keptSet[indexOf(items, item)]; already {
				continue
			}
			if matchesAnyPath(item.FilePath, targetFilePaths) {
				filtered = append(filtered, item)
			}
		}
	}
	return filtered
}

func indexOf(items []types.RetrievedContextItem, target types.RetrievedContextItem) int {
	for i, it := range items {
		if it.FilePath == target.FilePath && it.Content == target.Content {
			return i
		}
	}
	return -1
}

func matchesAnyPath(path string, targets []string) bool {
	for _, t := range targets {
		if t == path {
			return true
		}
	}
	return false
}

func indexSet(indices []int, bound int) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= bound {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}

func topIndicesByScore(items []types.RetrievedContextItem, n int) []int {
	type idxScore struct {
		idx   int
		score float64
	}
	ranked := make([]idxScore, len(items))
	for i, item := range items {
		ranked[i] = idxScore{idx: i, score: item.FusedScore}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ranked[i].idx)
	}
	return out
}

type indexedItem struct {
	Index    int
	FilePath string
	Snippet  string
}

func filterPrompt(items []types.RetrievedContextItem) string {
	rendered := make([]indexedItem, 0, len(items))
	for i, item := range items {
		snippet := item.Content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		rendered = append(rendered, indexedItem{Index: i, FilePath: item.FilePath, Snippet: snippet})
	}
	out, err := promptlib.Render("ai_filtering", struct{ Items []indexedItem }{Items: rendered})
	if err != nil {
		return fallbackFilterPrompt(rendered)
	}
	return out
}

func fallbackFilterPrompt(items []indexedItem) string {
	prompt := "Return {\"relevant_indices\":[...]} listing only the indices relevant to the query:\n"
	for _, item := range items {
		prompt += "[" + strconv.Itoa(item.Index) + "] " + item.FilePath + ": " + item.Snippet + "\n"
	}
	return prompt
}

type gapResult struct {
	MissingEntities []string `json:"missing_entities"`
}

// gapFill asks an LLM which entities are referenced but undefined in the
// current context, looks each one up directly, and fuses the results
// back in via RRF.
func (r *Retriever) gapFill(ctx context.Context, agentId types.AgentId, prompt string, items []types.RetrievedContextItem) []types.RetrievedContextItem {
	if r.router == nil || r.kg == nil {
		return items
	}
	result, err := r.router.Execute(ctx, types.TaskGapAnalysis, gapPrompt(prompt, items), router.ExecuteOptions{ForceJSON: true})
	if err != nil {
		return items
	}
	var parsed gapResult
	repaired, ok, _ := jsonrepair.Repair(ctx, result.Content, nil)
	if !ok || json.Unmarshal([]byte(repaired), &parsed) != nil || len(parsed.MissingEntities) == 0 {
		return items
	}

	nodes, err := r.kg.OpenNodes(ctx, agentId, unique(parsed.MissingEntities))
	if err != nil || len(nodes) == 0 {
		r.logger.Warn("gap fill lookup failed", zap.Error(err))
		return items
	}

	existing := itemsToRanked(items, "existing")
	gapItems := kgNodesToItems(nodes, 0.9, true)
	fresh := itemsToRanked(gapItems, string(types.SourceKnowledge))
	fused := rrf.Fuse(existing, fresh)
	return rankedToItems(fused)
}

type expansionResult struct {
	AdditionalEntities []string `json:"additional_entities"`
}

// expand asks an LLM for proactively related entities worth fetching and
// merges them in the same way gapFill does.
func (r *Retriever) expand(ctx context.Context, agentId types.AgentId, prompt string, items []types.RetrievedContextItem) []types.RetrievedContextItem {
	if r.router == nil || r.kg == nil {
		return items
	}
	result, err := r.router.Execute(ctx, types.TaskExpansionSuggest, expandPrompt(prompt, items), router.ExecuteOptions{ForceJSON: true})
	if err != nil {
		return items
	}
	var parsed expansionResult
	repaired, ok, _ := jsonrepair.Repair(ctx, result.Content, nil)
	if !ok || json.Unmarshal([]byte(repaired), &parsed) != nil || len(parsed.AdditionalEntities) == 0 {
		return items
	}

	nodes, err := r.kg.OpenNodes(ctx, agentId, unique(parsed.AdditionalEntities))
	if err != nil || len(nodes) == 0 {
		return items
	}

	existing := itemsToRanked(items, "existing")
	extra := itemsToRanked(kgNodesToItems(nodes, 0.7, true), string(types.SourceKnowledge))
	fused := rrf.Fuse(existing, extra)
	return rankedToItems(fused)
}

func gapPrompt(query string, items []types.RetrievedContextItem) string {
	out, err := promptlib.Render("gap_analysis", struct{ Query string }{Query: query})
	if err != nil {
		return "Query: " + query + "\nList entities referenced but not yet defined, as {\"missing_entities\":[...]}."
	}
	return out
}

func expandPrompt(query string, items []types.RetrievedContextItem) string {
	out, err := promptlib.Render("expansion_suggestion", struct{ Query string }{Query: query})
	if err != nil {
		return "Query: " + query + "\nSuggest additional related entities worth fetching, as {\"additional_entities\":[...]}."
	}
	return out
}
