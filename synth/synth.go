package synth

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rashee1997/orchestrator-sub000/promptlib"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

const (
	minUtilization     = 0.5
	optimalUtilization = 0.7
)

var citationPattern = regexp.MustCompile(`\[cite_(\d+)\]`)

// AnswerResult is the synthesized answer plus its citation ledger and any
// invariant-violation issues surfaced as structured state rather than an
// error.
type AnswerResult struct {
	Text              string
	Citations         []types.Citation
	Issues            []string
	SourceUtilization float64
	Insufficient      bool
}

// Synthesizer implements component I.
type Synthesizer struct {
	router *router.Router
	logger *zap.Logger
}

// NewSynthesizer wires the router the synthesis and verification prompts
// are executed through.
func NewSynthesizer(rtr *router.Router, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{router: rtr, logger: logger}
}

// Synthesize produces a structured, cited answer. total_sources=0 always
// returns an "insufficient context" answer with no [cite_N] emitted,
// regardless of router availability.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, sources []types.RetrievedContextItem) (AnswerResult, error) {
	if len(sources) == 0 {
		return AnswerResult{Text: "Insufficient context was retrieved to answer this query.", Insufficient: true}, nil
	}

	if s.router == nil {
		return AnswerResult{Text: "Insufficient context was retrieved to answer this query.", Insufficient: true}, nil
	}

	result, err := s.router.Execute(ctx, types.TaskAnswerSynthesis, synthesisPrompt(query, sources), router.ExecuteOptions{})
	if err != nil {
		return AnswerResult{}, err
	}

	return s.buildResult(result.Content, sources), nil
}

func (s *Synthesizer) buildResult(text string, sources []types.RetrievedContextItem) AnswerResult {
	total := len(sources)
	matches := citationPattern.FindAllStringSubmatch(text, -1)

	cited := make(map[int]struct{})
	var issues []string
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n < 1 || n > total {
			issues = append(issues, fmt.Sprintf("HALLUCINATION_DETECTED: cite_%d out of range [1,%d]", n, total))
			continue
		}
		cited[n] = struct{}{}
	}

	citations := make([]types.Citation, 0, len(cited))
	for n := range cited {
		src := sources[n-1]
		citations = append(citations, types.Citation{
			SourceIndex: n,
			FilePath:    src.FilePath,
			EntityName:  src.EntityName,
			Snippet:     snippet(src.Content, 160),
		})
	}

	utilization := float64(len(cited)) / float64(total)
	if utilization < minUtilization {
		issues = append(issues, fmt.Sprintf("source utilization %.2f below minimum %.2f", utilization, minUtilization))
	} else if utilization < optimalUtilization {
		issues = append(issues, fmt.Sprintf("source utilization %.2f below optimal %.2f", utilization, optimalUtilization))
	}

	return AnswerResult{
		Text:              text,
		Citations:         citations,
		Issues:            issues,
		SourceUtilization: utilization,
	}
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type synthesisSource struct {
	Index    int
	FilePath string
	Snippet  string
}

func synthesisPrompt(query string, sources []types.RetrievedContextItem) string {
	rendered := make([]synthesisSource, 0, len(sources))
	for i, src := range sources {
		rendered = append(rendered, synthesisSource{Index: i + 1, FilePath: src.FilePath, Snippet: snippet(src.Content, 300)})
	}
	out, err := promptlib.Render("answer_synthesis", struct {
		Query        string
		Sources      []synthesisSource
		TotalSources int
	}{Query: query, Sources: rendered, TotalSources: len(sources)})
	if err != nil {
		return fmt.Sprintf("Query: %s\nCite sources as [cite_N], N in [1, %d].", query, len(sources))
	}
	return out
}

// AppendLimitations adds an explicit limitations section to an answer
// whose verification score fell below 0.8, in lieu of a corrective
// iteration.
func AppendLimitations(answer AnswerResult, reasons []string) AnswerResult {
	var b strings.Builder
	b.WriteString(answer.Text)
	b.WriteString("\n\n## Limitations\n")
	if len(reasons) == 0 {
		b.WriteString("This answer may be incomplete or imprecise in places.\n")
	}
	for _, r := range reasons {
		b.WriteString("- " + r + "\n")
	}
	answer.Text = b.String()
	return answer
}
