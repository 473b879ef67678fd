// Package mistral implements the llm.Provider adapter for Mistral AI.
// Mistral is always paid and per spec.md is placed last in every candidate
// list, used only as a last-resort fallback. Its timeout is clamped to 45s.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/llm/providers"
	"go.uber.org/zap"
)

const (
	maxTimeout          = 45 * time.Second
	defaultChatModel    = "mistral-medium"
	defaultEmbeddingModel = "codestral-embed"
)

// Provider implements llm.Provider for Mistral's OpenAI-compatible API.
type Provider struct {
	cfg    providers.MistralConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a Mistral provider.
func New(cfg providers.MistralConfig, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai"
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > maxTimeout {
		timeout = maxTimeout
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

func (p *Provider) Name() string { return "mistral" }

func (p *Provider) SupportsEmbedding() bool { return true }

func (p *Provider) apiKey() string {
	if p.cfg.APIKey != "" {
		return p.cfg.APIKey
	}
	return os.Getenv("MISTRAL_API_KEY")
}

// Probe reports availability: Mistral requires only an API key.
func (p *Provider) Probe(ctx context.Context) (bool, error) {
	return strings.TrimSpace(p.apiKey()) != "", nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

func (p *Provider) headers(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey())
	req.Header.Set("Content-Type", "application/json")
}

// Chat sends one completion request, clamped to maxTimeout.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	model := providers.ChooseModel(req.Model, p.cfg.Model, defaultChatModel)

	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.ChatResponse{}, llm.NewError(llm.ErrInvalidRequest, "marshal request").WithCause(err).WithProvider(p.Name())
	}

	timeout := req.Timeout
	if timeout <= 0 || timeout > maxTimeout {
		timeout = maxTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("create request: %w", err)
	}
	p.headers(httpReq)

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

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return llm.ChatResponse{}, llm.NewError(llm.ErrUpstreamError, "decode response").
			WithCause(err).WithHTTPStatus(http.StatusBadGateway).WithRetryable(true).WithProvider(p.Name())
	}

	content := ""
	if len(cr.Choices) > 0 {
		content = cr.Choices[0].Message.Content
	}
	out := llm.ChatResponse{
		Content:   content,
		Model:     model,
		Provider:  p.Name(),
		CreatedAt: time.Now(),
	}
	if cr.Usage != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     cr.Usage.PromptTokens,
			CompletionTokens: cr.Usage.CompletionTokens,
			TotalTokens:      cr.Usage.TotalTokens,
		}
	}
	return out, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed calls Mistral's codestral-embed endpoint by default.
func (p *Provider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if model == "" {
		model = defaultEmbeddingModel
	}
	payload, err := json.Marshal(embedRequest{Model: model, Input: inputs})
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "marshal embed request").WithCause(err).WithProvider(p.Name())
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.headers(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, err.Error()).WithRetryable(true).WithProvider(p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, llm.NewError(llm.ErrUpstreamError, "decode embed response").WithCause(err).WithProvider(p.Name())
	}
	out := make([][]float32, 0, len(er.Data))
	for _, d := range er.Data {
		out = append(out, d.Embedding)
	}
	return out, nil
}
