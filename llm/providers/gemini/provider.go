// Package gemini implements the llm.Provider adapter for Google's Gemini
// API. It supports chat completion and embeddings, and probes availability
// via an API key or an OAuth credential file.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/llm/providers"
	"go.uber.org/zap"
)

// RPM tiers per spec.md §4.1: OAuth raises the ceiling from the API-key
// default; Flash-Lite variants are API-key-only and get a fixed RPM.
const (
	rpmAPIKeyDefault  = 10
	rpmOAuthDefault   = 60
	rpmFlashLite      = 15
	rpmFlashLite8B    = 25
	defaultEmbedModel = "text-embedding-004"
)

// Provider implements llm.Provider for Gemini.
type Provider struct {
	cfg    providers.GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini provider. cfg.BaseURL defaults to the public API
// endpoint when empty.
func New(cfg providers.GeminiConfig, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) SupportsEmbedding() bool { return true }

// Probe implements the availability check: an API key (env or config) or an
// OAuth credential file under the user's home directory makes the provider
// available.
func (p *Provider) Probe(ctx context.Context) (bool, error) {
	if strings.TrimSpace(p.apiKey()) != "" {
		return true, nil
	}
	if path := p.oauthCredsPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			return true, nil
		}
	}
	return false, nil
}

func (p *Provider) apiKey() string {
	if p.cfg.APIKey != "" {
		return p.cfg.APIKey
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func (p *Provider) oauthCredsPath() string {
	if p.cfg.OAuthCredsPath != "" {
		return p.cfg.OAuthCredsPath
	}
	if v := os.Getenv("GEMINI_OAUTH_CREDS_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gemini", "oauth_creds.json")
}

// oauthCreds is the shape of $HOME/.gemini/oauth_creds.json.
type oauthCreds struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (p *Provider) hasOAuth() bool {
	path := p.oauthCredsPath()
	if path == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var creds oauthCreds
	if err := json.Unmarshal(data, &creds); err != nil {
		return false
	}
	return creds.AccessToken != "" || creds.RefreshToken != ""
}

// RateLimitRPM resolves the effective requests-per-minute ceiling for model.
func (p *Provider) RateLimitRPM(model string) int {
	lower := strings.ToLower(model)
	if strings.Contains(lower, "flash-lite-8b") || strings.Contains(lower, "flash-8b") {
		return rpmFlashLite8B
	}
	if strings.Contains(lower, "flash-lite") {
		return rpmFlashLite
	}
	if p.hasOAuth() {
		return rpmOAuthDefault
	}
	return rpmAPIKeyDefault
}

// Gemini REST wire types (v1beta generateContent).
type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string               `json:"modelVersion,omitempty"`
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.apiKey())
	req.Header.Set("Content-Type", "application/json")
}

// Chat sends one completion request and blocks for the reply.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	model := providers.ChooseModel(req.Model, p.cfg.Model, "gemini-2.0-flash")

	var systemInstruction *geminiContent
	if req.System != "" {
		systemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	body := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.User}}}},
		SystemInstruction: systemInstruction,
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llm.ChatResponse{}, llm.NewError(llm.ErrInvalidRequest, "marshal request").WithCause(err).WithProvider(p.Name())
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(p.cfg.BaseURL, "/"), model)
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return llm.ChatResponse{}, llm.NewError(llm.ErrUpstreamError, err.Error()).
			WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return llm.ChatResponse{}, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return llm.ChatResponse{}, llm.NewError(llm.ErrUpstreamError, "decode response").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(p.Name())
	}

	var text strings.Builder
	if len(gr.Candidates) > 0 {
		for _, part := range gr.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}

	out := llm.ChatResponse{
		Content:   text.String(),
		Model:     model,
		Provider:  p.Name(),
		CreatedAt: time.Now(),
	}
	if gr.UsageMetadata != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

type geminiEmbedRequest struct {
	Requests []geminiEmbedSingle `json:"requests"`
}

type geminiEmbedSingle struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

// Embed returns one vector per input via Gemini's batchEmbedContents.
func (p *Provider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if model == "" {
		model = defaultEmbedModel
	}
	reqs := make([]geminiEmbedSingle, 0, len(inputs))
	for _, in := range inputs {
		reqs = append(reqs, geminiEmbedSingle{
			Model:   "models/" + model,
			Content: geminiContent{Parts: []geminiPart{{Text: in}}},
		})
	}
	payload, err := json.Marshal(geminiEmbedRequest{Requests: reqs})
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "marshal embed request").WithCause(err).WithProvider(p.Name())
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:batchEmbedContents", strings.TrimRight(p.cfg.BaseURL, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider(p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var er geminiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, "decode embed response").WithCause(err).WithProvider(p.Name())
	}
	out := make([][]float32, 0, len(er.Embeddings))
	for _, e := range er.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}

func readErrMsg(body io.Reader) string {
	return providers.ReadErrorMessage(body)
}
