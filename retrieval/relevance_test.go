package retrieval

import (
	"testing"

	"github.com/rashee1997/orchestrator-sub000/types"
	"github.com/stretchr/testify/assert"
)

func TestValidateRelevance_KeepsStrongMatches(t *testing.T) {
	items := []types.RetrievedContextItem{
		{Content: "function UserService handles authentication", FilePath: "user_service.go", EntityName: "UserService"},
		{Content: "totally unrelated filler text about nothing", FilePath: "misc.go"},
	}
	valid, ok := ValidateRelevance(items, []string{"userservice", "authentication"})
	// One valid item of two: coverage 0.5 × average 0.375 = 0.1875, under
	// the 0.4 validity floor.
	assert.False(t, ok)
	assert.Len(t, valid, 1)
	assert.Equal(t, "user_service.go", valid[0].FilePath)
}

func TestValidateRelevance_NoItemsIsInvalid(t *testing.T) {
	_, ok := ValidateRelevance(nil, []string{"anything"})
	assert.False(t, ok)
}

func TestValidateRelevance_AllIrrelevantFallsBackInvalid(t *testing.T) {
	items := []types.RetrievedContextItem{
		{Content: "nothing matches here", FilePath: "a.go"},
		{Content: "still nothing relevant", FilePath: "b.go"},
	}
	_, ok := ValidateRelevance(items, []string{"quantum", "astrophysics"})
	assert.False(t, ok)
}

func TestWeightsFor_UnknownIntentDefaultsToGeneral(t *testing.T) {
	w := WeightsFor(types.QueryIntent("unknown_intent"))
	assert.Equal(t, weightMatrix[types.IntentGeneralQuery], w)
}

func TestWeightsFor_ZeroWeightMeansSourceSkipped(t *testing.T) {
	w := WeightsFor(types.IntentDebugError)
	assert.Equal(t, 0, TopKFor(10, w.Doc))
}

func TestTopKFor_PositiveWeightYieldsPositiveBudget(t *testing.T) {
	assert.Greater(t, TopKFor(10, 0.5), 0)
}
