package retrieval

import (
	"strings"

	"github.com/rashee1997/orchestrator-sub000/types"
)

var structuralKeywords = []string{"class", "function", "interface", "struct", "func", "type", "method"}

// localRelevance scores one item against the original query terms using
// the documented heuristic: direct term match (×0.4), path relevance
// (×0.3), entity-name match (×0.3), plus a +0.2 depth bonus for content
// containing structural keywords.
func localRelevance(item types.RetrievedContextItem, queryTerms []string) float64 {
	content := strings.ToLower(item.Content)
	path := strings.ToLower(item.FilePath)
	entity := strings.ToLower(item.EntityName)

	var termHits, pathHits, entityHits int
	for _, term := range queryTerms {
		if term == "" {
			continue
		}
		if strings.Contains(content, term) {
			termHits++
		}
		if strings.Contains(path, term) {
			pathHits++
		}
		if entity != "" && strings.Contains(entity, term) {
			entityHits++
		}
	}

	score := 0.0
	if len(queryTerms) > 0 {
		score += 0.4 * ratio(termHits, len(queryTerms))
		score += 0.3 * ratio(pathHits, len(queryTerms))
		score += 0.3 * ratio(entityHits, len(queryTerms))
	}

	for _, kw := range structuralKeywords {
		if strings.Contains(content, kw) {
			score += 0.2
			break
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func ratio(hits, total int) float64 {
	if total == 0 {
		return 0
	}
	r := float64(hits) / float64(total)
	if r > 1 {
		r = 1
	}
	return r
}

// ValidateRelevance filters items to those with local relevance ≥ 0.5
// and reports whether the overall set is valid (coverage*average ≥ 0.4
// and at least one valid item). When invalid, callers should fall back
// to the top-N items by fused score instead of the filtered set.
func ValidateRelevance(items []types.RetrievedContextItem, queryTerms []string) (valid []types.RetrievedContextItem, ok bool) {
	if len(items) == 0 {
		return nil, false
	}

	var sum float64
	for _, item := range items {
		local := localRelevance(item, queryTerms)
		sum += local
		if local >= 0.5 {
			valid = append(valid, item)
		}
	}

	coverage := ratio(len(valid), len(items))
	average := sum / float64(len(items))
	ok = len(valid) >= 1 && coverage*average >= 0.4
	return valid, ok
}
