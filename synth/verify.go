package synth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rashee1997/orchestrator-sub000/jsonrepair"
	"github.com/rashee1997/orchestrator-sub000/promptlib"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/types"
)

const verificationThreshold = 0.8

// VerifyResult is the verifier's [0,1]-scored judgement of one answer.
type VerifyResult struct {
	ClaimSupport float64  `json:"claim_support"`
	Citations    float64  `json:"citation_validity"`
	Completeness float64  `json:"completeness"`
	Coherence    float64  `json:"coherence"`
	Accuracy     float64  `json:"technical_accuracy"`
	Issues       []string `json:"issues"`
}

// Verify runs the verification prompt and parses its JSON judgement. A
// router or parse failure degrades to a maximally-cautious result (every
// score 0) so the caller reliably treats it as needing correction rather
// than silently trusting an unverified answer.
func (s *Synthesizer) Verify(ctx context.Context, query string, answer AnswerResult, sources []types.RetrievedContextItem) VerifyResult {
	if s.router == nil {
		return VerifyResult{}
	}
	result, err := s.router.Execute(ctx, types.TaskVerification, verificationPrompt(query, answer, sources), router.ExecuteOptions{ForceJSON: true})
	if err != nil {
		return VerifyResult{}
	}
	repaired, ok, _ := jsonrepair.Repair(ctx, result.Content, nil)
	if !ok {
		return VerifyResult{}
	}
	var parsed VerifyResult
	if json.Unmarshal([]byte(repaired), &parsed) != nil {
		return VerifyResult{}
	}
	return parsed
}

// NeedsCorrection reports whether any verification dimension fell below
// the 0.8 threshold.
func (v VerifyResult) NeedsCorrection() bool {
	return v.ClaimSupport < verificationThreshold ||
		v.Citations < verificationThreshold ||
		v.Completeness < verificationThreshold ||
		v.Coherence < verificationThreshold ||
		v.Accuracy < verificationThreshold
}

// FailingDimensions names which scored dimensions fell below threshold,
// for use in an appended limitations section.
func (v VerifyResult) FailingDimensions() []string {
	var out []string
	check := func(name string, score float64) {
		if score < verificationThreshold {
			out = append(out, fmt.Sprintf("%s scored %.2f (below %.2f)", name, score, verificationThreshold))
		}
	}
	check("claim support", v.ClaimSupport)
	check("citation validity", v.Citations)
	check("completeness", v.Completeness)
	check("coherence", v.Coherence)
	check("technical accuracy", v.Accuracy)
	out = append(out, v.Issues...)
	return out
}

func verificationPrompt(query string, answer AnswerResult, sources []types.RetrievedContextItem) string {
	out, err := promptlib.Render("verification", struct {
		Query        string
		Answer       string
		TotalSources int
	}{Query: query, Answer: answer.Text, TotalSources: len(sources)})
	if err != nil {
		return fmt.Sprintf("Query: %s\nAnswer: %s\nTotal sources: %d", query, answer.Text, len(sources))
	}
	return out
}
