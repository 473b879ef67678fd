package ragcore

import (
	"context"

	"github.com/google/uuid"

	"github.com/rashee1997/orchestrator-sub000/controller"
	"github.com/rashee1997/orchestrator-sub000/internal/ctxkeys"
	"github.com/rashee1997/orchestrator-sub000/retrieval"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/synth"
	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

// Mode selects how Answer gathers context before synthesis.
type Mode string

const (
	// ModeSimple runs a single retrieval pass with no iterative loop.
	ModeSimple Mode = "simple"
	// ModeEnhanced runs the full INIT/PLAN/RETRIEVE/REFLECT controller loop.
	ModeEnhanced Mode = "enhanced"
	// ModeHybrid runs the controller loop with web search included from
	// the first turn.
	ModeHybrid Mode = "hybrid"
)

// AnswerOptions parameterizes one Answer call.
type AnswerOptions struct {
	Retrieval types.RetrievalOptions
	Verify    bool
}

// AnswerResponse is the structured result of Answer. Error is populated
// only when synthesis itself could not run at all; a merely thin or
// unverified answer still comes back with Error empty and its
// shortcomings folded into the text's limitations section.
type AnswerResponse struct {
	Text      string
	Citations []types.Citation
	TurnLog   []types.TurnRecord
	Error     string
}

// Core wires the Router, Retriever, Controller, and Synthesizer into the
// public surface described in §6.
type Core struct {
	router      *router.Router
	retriever   *retrieval.Retriever
	controller  *controller.Controller
	synthesizer *synth.Synthesizer
	logger      *zap.Logger
}

// NewCore assembles the facade. Any collaborator may be nil; each
// dependent operation degrades the same way its underlying package does
// on a nil collaborator (see router/retrieval/controller/synth docs).
func NewCore(rtr *router.Router, retriever *retrieval.Retriever, ctrl *controller.Controller, synthesizer *synth.Synthesizer, logger *zap.Logger) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Core{router: rtr, retriever: retriever, controller: ctrl, synthesizer: synthesizer, logger: logger}
}

// ExecuteTask runs one Router-mediated LLM call.
func (c *Core) ExecuteTask(ctx context.Context, taskType types.TaskType, prompt string, system string, opts router.ExecuteOptions) (router.ExecuteResult, error) {
	if system != "" {
		opts.System = system
	}
	return c.router.Execute(ctx, taskType, prompt, opts)
}

// RetrieveContextForPrompt runs the full context-retrieval pipeline for
// one free-text prompt.
func (c *Core) RetrieveContextForPrompt(ctx context.Context, agentId types.AgentId, prompt string, opts types.RetrievalOptions) []types.RetrievedContextItem {
	return c.retriever.RetrieveForPrompt(ctx, agentId, prompt, opts)
}

// RetrieveContextByEntityNames performs a direct knowledge-graph lookup
// for a known set of entity names, bypassing the fan-out pipeline.
func (c *Core) RetrieveContextByEntityNames(ctx context.Context, agentId types.AgentId, names []string, opts types.RetrievalOptions) ([]types.RetrievedContextItem, error) {
	return c.retriever.RetrieveByEntityNames(ctx, agentId, names, opts)
}

// Answer produces a citation-bearing answer to query. simple mode issues
// one retrieval pass; enhanced and hybrid run the iterative controller,
// hybrid forcing web search from the first turn. With no controller
// configured, enhanced and hybrid run one retrieval pass instead.
func (c *Core) Answer(ctx context.Context, agentId types.AgentId, query string, mode Mode, opts AnswerOptions) AnswerResponse {
	if _, ok := ctxkeys.TraceID(ctx); !ok {
		ctx = ctxkeys.WithTraceID(ctx, uuid.NewString())
	}
	traceID, _ := ctxkeys.TraceID(ctx)
	logger := c.logger.With(zap.String("trace_id", traceID))

	var items []types.RetrievedContextItem
	var turns []types.TurnRecord

	switch mode {
	case ModeEnhanced, ModeHybrid:
		retrievalOpts := opts.Retrieval
		if mode == ModeHybrid {
			retrievalOpts.IncludeWebSearch = true
		}
		if c.controller == nil {
			items = c.retriever.RetrieveForPrompt(ctx, agentId, query, retrievalOpts)
			break
		}
		session := c.controller.Run(ctx, agentId, query, retrievalOpts)
		items = session.Sources
		turns = session.Turns
	default:
		items = c.retriever.RetrieveForPrompt(ctx, agentId, query, opts.Retrieval)
	}

	answer, err := c.synthesizer.Synthesize(ctx, query, items)
	if err != nil {
		logger.Warn("answer synthesis failed", zap.Error(err))
		return AnswerResponse{
			Text:    "insufficient context: synthesis unavailable",
			TurnLog: turns,
			Error:   err.Error(),
		}
	}

	if opts.Verify && !answer.Insufficient {
		verdict := c.synthesizer.Verify(ctx, query, answer, items)
		if verdict.NeedsCorrection() {
			answer = synth.AppendLimitations(answer, verdict.FailingDimensions())
		}
	}

	return AnswerResponse{
		Text:      answer.Text,
		Citations: answer.Citations,
		TurnLog:   turns,
	}
}
