package controller

import (
	"strings"

	"github.com/rashee1997/orchestrator-sub000/types"
)

// intentAspects lists the facets a high-quality answer for each intent is
// expected to touch; aspectCoverage checks how many of them show up
// somewhere in the accumulated context.
var intentAspects = map[types.QueryIntent][]string{
	types.IntentUnderstand:   {"structure", "responsibility", "interaction", "invariant"},
	types.IntentDebugError:   {"error", "root cause", "stack", "fix"},
	types.IntentRefactorCode: {"current", "target", "risk", "migration"},
	types.IntentAddFeature:   {"requirement", "integration", "test", "interface"},
	types.IntentFindExample:  {"usage", "pattern", "location"},
	types.IntentGeneralQuery: {"overview", "detail"},
}

// computeQuality implements quality = 0.5*avg(relevance) +
// 0.3*coverage(intent_aspects) + 0.2*citation_coverage.
func computeQuality(items []types.RetrievedContextItem, intent types.QueryIntent) float64 {
	return 0.5*averageRelevance(items) + 0.3*aspectCoverage(items, intent) + 0.2*citationCoverage(items)
}

func averageRelevance(items []types.RetrievedContextItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += item.Relevance
	}
	return sum / float64(len(items))
}

// aspectCoverage reports the fraction of an intent's named aspects that
// appear as a substring somewhere in the retrieved content. Intents with
// no registered aspects are trivially fully covered.
func aspectCoverage(items []types.RetrievedContextItem, intent types.QueryIntent) float64 {
	aspects, ok := intentAspects[intent]
	if !ok || len(aspects) == 0 {
		return 1.0
	}

	var corpus strings.Builder
	for _, item := range items {
		corpus.WriteString(strings.ToLower(item.Content))
		corpus.WriteByte('\n')
	}
	haystack := corpus.String()

	hits := 0
	for _, aspect := range aspects {
		if strings.Contains(haystack, aspect) {
			hits++
		}
	}
	return float64(hits) / float64(len(aspects))
}

// citationCoverage approximates, ahead of synthesis, how much of the
// accumulated context is citable: the fraction carrying a concrete
// FilePath. The synthesizer (component I) recomputes the authoritative
// citation_coverage once [cite_N] markers actually exist.
func citationCoverage(items []types.RetrievedContextItem) float64 {
	if len(items) == 0 {
		return 0
	}
	citable := 0
	for _, item := range items {
		if item.FilePath != "" {
			citable++
		}
	}
	return float64(citable) / float64(len(items))
}
