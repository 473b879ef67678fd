package controller

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rashee1997/orchestrator-sub000/dmqr"
	"github.com/rashee1997/orchestrator-sub000/internal/ctxkeys"
	"github.com/rashee1997/orchestrator-sub000/internal/telemetry"
	"github.com/rashee1997/orchestrator-sub000/jsonrepair"
	"github.com/rashee1997/orchestrator-sub000/promptlib"
	"github.com/rashee1997/orchestrator-sub000/retrieval"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

// hardStopMultiplier bounds the loop independently of MaxIterations, as a
// last-resort safety net against a reflection decision that never satisfies
// a guardrail. A turn takes three state transitions, so the stop sits one
// full turn past the REFLECT of turn MaxIterations.
const hardStopMultiplier = 3

// Controller drives the INIT/PLAN/RETRIEVE/REFLECT state machine.
type Controller struct {
	retriever *retrieval.Retriever
	dmqrGen   *dmqr.Generator
	router    *router.Router
	cfg       Config
	logger    *zap.Logger
	metrics   *telemetry.Metrics
}

// SetMetrics wires a Prometheus metrics handle so every Run call records
// its final turn count. Passing nil (the default) disables recording.
func (c *Controller) SetMetrics(m *telemetry.Metrics) {
	c.metrics = m
}

// NewController wires the collaborators the state machine calls into.
// dmqrGen and router may be nil; the controller degrades to single-query
// retrieval and PLAN-only reflection respectively.
func NewController(retriever *retrieval.Retriever, dmqrGen *dmqr.Generator, rtr *router.Router, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{retriever: retriever, dmqrGen: dmqrGen, router: rtr, cfg: cfg, logger: logger}
}

// Run executes the state machine to completion and returns the
// accumulated session: every retrieved source plus an append-only turn
// log. It never returns an error from guardrail exhaustion; the hard
// stop always resolves to an ANSWER-equivalent exit.
func (c *Controller) Run(ctx context.Context, agentId types.AgentId, query string, opts types.RetrievalOptions) types.SessionContext {
	if _, ok := ctxkeys.RunID(ctx); !ok {
		ctx = ctxkeys.WithRunID(ctx, uuid.NewString())
	}
	runID, _ := ctxkeys.RunID(ctx)
	logger := c.logger.With(zap.String("run_id", runID))

	session := types.SessionContext{AgentId: agentId}

	state := StateInit
	queries := []string{query}
	turn := 0

	for iterations := 0; ; iterations++ {
		if iterations >= (c.cfg.MaxIterations+1)*hardStopMultiplier {
			logger.Warn("controller hard stop reached", zap.Int("iterations", iterations))
			c.metrics.RecordControllerTurns(turn)
			return session
		}

		switch state {
		case StateInit:
			state = StatePlan

		case StatePlan:
			queries = c.planQueries(ctx, query, opts)
			state = StateRetrieve

		case StateRetrieve:
			turn++
			var fresh []types.RetrievedContextItem
			for _, q := range queries {
				items := c.retrieveFor(ctx, agentId, q, opts)
				fresh = append(fresh, items...)
			}
			session.Sources = dedupItems(append(session.Sources, fresh...))
			state = StateReflect

		case StateReflect:
			quality := computeQuality(session.Sources, opts.Intent)
			decision, reason := c.decide(ctx, turn, quality, len(session.Sources), query, session.Sources, opts.Intent)
			session.Turns = append(session.Turns, types.TurnRecord{
				Turn:           turn,
				State:          string(StateReflect),
				Query:          query,
				ItemsRetrieved: len(session.Sources),
				Quality:        quality,
				Decision:       string(decision) + ":" + reason,
			})
			switch decision {
			case DecisionAnswer:
				state = StateAnswer
			case DecisionCorrect:
				state = StateCorrect
			case DecisionWeb:
				state = StateWeb
			default:
				state = StatePlan
			}

		case StateCorrect:
			queries = []string{c.correctiveQuery(ctx, query, session.Sources)}
			state = StateRetrieve

		case StateWeb:
			webOpts := opts
			webOpts.IncludeWebSearch = true
			opts = webOpts
			queries = []string{query}
			state = StateRetrieve

		case StateAnswer:
			c.metrics.RecordControllerTurns(turn)
			return session
		}
	}
}

func (c *Controller) retrieveFor(ctx context.Context, agentId types.AgentId, query string, opts types.RetrievalOptions) []types.RetrievedContextItem {
	if c.retriever == nil {
		return nil
	}
	return c.retriever.RetrieveForPrompt(ctx, agentId, query, opts)
}

// planQueries seeds or reseeds the retrieval fan-out via DMQR. With no
// generator wired, it degrades to the single original query.
func (c *Controller) planQueries(ctx context.Context, query string, opts types.RetrievalOptions) []string {
	if c.dmqrGen == nil {
		return []string{query}
	}
	result, err := c.dmqrGen.Generate(ctx, dmqr.GenerateRequest{OriginalQuery: query})
	if err != nil || len(result.Queries) == 0 {
		return []string{query}
	}
	out := make([]string, 0, len(result.Queries))
	for _, q := range result.Queries {
		out = append(out, q.Text)
	}
	return out
}

// codebaseIntrospectionIntents are the intents that ask something about
// the codebase itself; SEARCH_WEB is forbidden for all of them, since a
// general web search cannot answer a question about this specific
// corpus. general_query is the only intent left eligible for WEB.
var codebaseIntrospectionIntents = map[types.QueryIntent]bool{
	types.IntentFindExample:  true,
	types.IntentRefactorCode: true,
	types.IntentDebugError:   true,
	types.IntentAddFeature:   true,
	types.IntentUnderstand:   true,
}

// isCodebaseIntrospection reports whether intent classifies the query as
// being about the codebase under analysis. An unset intent is treated
// conservatively as codebase-introspection, since the caller has not
// affirmatively classified it as a general, non-codebase query.
func isCodebaseIntrospection(intent types.QueryIntent) bool {
	if intent == types.IntentGeneralQuery {
		return false
	}
	return intent == "" || codebaseIntrospectionIntents[intent]
}

// decide applies the deterministic guardrails first; only when none fires
// does it defer to the model's reflection judgement. intent gates the WEB
// decision: SEARCH_WEB is forbidden for queries classifiable as
// codebase-introspection.
func (c *Controller) decide(ctx context.Context, turn int, quality float64, sourceCount int, query string, sources []types.RetrievedContextItem, intent types.QueryIntent) (Decision, string) {
	if quality >= c.cfg.QualityAnswerThreshold {
		return DecisionAnswer, "quality_threshold"
	}
	if quality >= c.cfg.QualityTurnThreshold && turn >= c.cfg.QualityTurnMin {
		return DecisionAnswer, "quality_and_turn_threshold"
	}
	if sourceCount >= c.cfg.SourceCountThreshold && quality >= c.cfg.SourceCountQualityThreshold {
		return DecisionAnswer, "source_count_threshold"
	}
	if turn >= c.cfg.MaxIterations {
		return DecisionAnswer, "max_iterations"
	}
	decision, reason := c.reflectLLM(ctx, query, sources)
	if decision == DecisionWeb && isCodebaseIntrospection(intent) {
		return DecisionCorrect, "web_forbidden_codebase_introspection"
	}
	return decision, reason
}

type reflectResult struct {
	Decision string `json:"decision"`
}

// reflectLLM asks the model to pick among plan/correct/web. Any failure to
// get a usable answer defaults to PLAN, which simply retries the fan-out.
func (c *Controller) reflectLLM(ctx context.Context, query string, sources []types.RetrievedContextItem) (Decision, string) {
	if c.router == nil {
		return DecisionPlan, "no_router_default_plan"
	}
	result, err := c.router.Execute(ctx, types.TaskReflection, reflectPrompt(query, sources), router.ExecuteOptions{ForceJSON: true})
	if err != nil {
		return DecisionPlan, "reflection_call_failed"
	}
	repaired, ok, _ := jsonrepair.Repair(ctx, result.Content, nil)
	if !ok {
		return DecisionPlan, "reflection_unparseable"
	}
	var parsed reflectResult
	if json.Unmarshal([]byte(repaired), &parsed) != nil {
		return DecisionPlan, "reflection_unparseable"
	}
	switch parsed.Decision {
	case string(DecisionAnswer):
		return DecisionAnswer, "model_decision"
	case string(DecisionCorrect):
		return DecisionCorrect, "model_decision"
	case string(DecisionWeb):
		return DecisionWeb, "model_decision"
	default:
		return DecisionPlan, "model_decision"
	}
}

// correctiveQuery asks the model for a narrower or differently-phrased
// query in light of what has been retrieved so far; falls back to the
// original query untouched.
func (c *Controller) correctiveQuery(ctx context.Context, query string, sources []types.RetrievedContextItem) string {
	if c.router == nil {
		return query
	}
	result, err := c.router.Execute(ctx, types.TaskCorrectiveSearch, correctivePrompt(query, sources), router.ExecuteOptions{})
	if err != nil || strings.TrimSpace(result.Content) == "" {
		return query
	}
	return strings.TrimSpace(result.Content)
}

func reflectPrompt(query string, sources []types.RetrievedContextItem) string {
	out, err := promptlib.Render("reflection", struct {
		Query       string
		SourceCount int
	}{Query: query, SourceCount: len(sources)})
	if err != nil {
		return "Query: " + query + "\nRetrieved " + strconv.Itoa(len(sources)) + " context items so far."
	}
	return out
}

func correctivePrompt(query string, sources []types.RetrievedContextItem) string {
	out, err := promptlib.Render("corrective_search", struct{ Query string }{Query: query})
	if err != nil {
		return "Rewrite this query to better target what is missing: " + query
	}
	return out
}

// dedupItems removes repeats across accumulated turns, keyed the same way
// the retriever dedups within a single turn: (FilePath, Content prefix).
func dedupItems(items []types.RetrievedContextItem) []types.RetrievedContextItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]types.RetrievedContextItem, 0, len(items))
	for _, item := range items {
		prefix := item.Content
		if len(prefix) > 100 {
			prefix = prefix[:100]
		}
		key := item.FilePath + "::" + prefix
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
