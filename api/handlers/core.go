package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/rashee1997/orchestrator-sub000/ragcore"
	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

// CoreHandler exposes ragcore.Core's Answer and context-retrieval
// operations over HTTP.
type CoreHandler struct {
	core   *ragcore.Core
	logger *zap.Logger
}

// NewCoreHandler builds a CoreHandler.
func NewCoreHandler(core *ragcore.Core, logger *zap.Logger) *CoreHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoreHandler{core: core, logger: logger}
}

// AnswerRequest is the body of POST /v1/answer.
type AnswerRequest struct {
	AgentId string `json:"agent_id"`
	Query   string `json:"query"`
	Mode    string `json:"mode,omitempty"`
	Verify  bool   `json:"verify,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
}

// AnswerResponseBody is the data payload of a successful POST /v1/answer.
type AnswerResponseBody struct {
	Text      string             `json:"text"`
	Citations []types.Citation   `json:"citations,omitempty"`
	TurnLog   []types.TurnRecord `json:"turn_log,omitempty"`
}

// HandleAnswer runs one full Answer call: retrieval (single-pass or the
// iterative controller, depending on mode) followed by synthesis and
// optional verification.
func (h *CoreHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "POST required", h.logger)
		return
	}

	var req AnswerRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "query must not be empty", h.logger)
		return
	}

	mode := ragcore.Mode(req.Mode)
	switch mode {
	case ragcore.ModeSimple, ragcore.ModeEnhanced, ragcore.ModeHybrid:
	default:
		mode = ragcore.ModeEnhanced
	}

	resp := h.core.Answer(r.Context(), types.AgentId(req.AgentId), req.Query, mode, ragcore.AnswerOptions{
		Retrieval: types.RetrievalOptions{AgentId: types.AgentId(req.AgentId), TopK: req.TopK},
		Verify:    req.Verify,
	})

	if resp.Error != "" {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, resp.Error, h.logger)
		return
	}

	WriteSuccess(w, AnswerResponseBody{
		Text:      resp.Text,
		Citations: resp.Citations,
		TurnLog:   resp.TurnLog,
	})
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	AgentId string `json:"agent_id"`
	Prompt  string `json:"prompt"`
	TopK    int    `json:"top_k,omitempty"`
}

// HandleRetrieve runs the context-retrieval pipeline without synthesis, for
// callers that want raw retrieved items (e.g. to feed their own prompt).
func (h *CoreHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "POST required", h.logger)
		return
	}

	var req RetrieveRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "prompt must not be empty", h.logger)
		return
	}

	ctx := r.Context()
	start := time.Now()
	items := h.core.RetrieveContextForPrompt(ctx, types.AgentId(req.AgentId), req.Prompt, types.RetrievalOptions{
		AgentId: types.AgentId(req.AgentId),
		TopK:    req.TopK,
	})
	h.logger.Debug("retrieve", zap.Duration("elapsed", time.Since(start)), zap.Int("items", len(items)))

	WriteSuccess(w, items)
}
