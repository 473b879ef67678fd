package retrieval

import "github.com/rashee1997/orchestrator-sub000/types"

// SourceWeights is the 4-tuple over [semantic, kg, doc, logs] used to
// derive each source's per-query top_k. A zero weight means that source
// is not called at all for the given intent.
type SourceWeights struct {
	Semantic float64
	KG       float64
	Doc      float64
	TaskLogs float64
}

// weightMatrix is the fixed intent → SourceWeights table. Documentation
// search is implemented as a real filter over embedding results (see
// pipeline.go), honoring the intent matrix rather than dropping the
// weight entry, per the open question in the design notes.
var weightMatrix = map[types.QueryIntent]SourceWeights{
	types.IntentFindExample:  {Semantic: 0.6, KG: 0.2, Doc: 0.1, TaskLogs: 0.1},
	types.IntentRefactorCode: {Semantic: 0.4, KG: 0.4, Doc: 0.1, TaskLogs: 0.1},
	types.IntentDebugError:   {Semantic: 0.3, KG: 0.3, Doc: 0.0, TaskLogs: 0.4},
	types.IntentAddFeature:   {Semantic: 0.4, KG: 0.3, Doc: 0.2, TaskLogs: 0.1},
	types.IntentUnderstand:   {Semantic: 0.3, KG: 0.5, Doc: 0.2, TaskLogs: 0.0},
	types.IntentGeneralQuery: {Semantic: 0.5, KG: 0.3, Doc: 0.1, TaskLogs: 0.1},
}

// WeightsFor returns the weight tuple for intent, defaulting to
// general_query's weights for an unrecognized value.
func WeightsFor(intent types.QueryIntent) SourceWeights {
	if w, ok := weightMatrix[intent]; ok {
		return w
	}
	return weightMatrix[types.IntentGeneralQuery]
}

// TopKFor scales a base top_k by a source's weight, always returning at
// least 0 and never calling the source when weight is exactly 0.
func TopKFor(baseTopK int, weight float64) int {
	if weight <= 0 {
		return 0
	}
	k := int(float64(baseTopK) * weight * 4) // weights sum to ~1 across 4 sources; recover a per-source budget
	if k < 1 {
		k = 1
	}
	return k
}
