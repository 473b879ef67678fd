// Package claudecode implements the llm.Provider adapter that shells out to
// the `claude` CLI rather than calling an HTTP API. It has no embedding
// capability.
package claudecode

import (
	"context"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/llm/providers"
	"github.com/rashee1997/orchestrator-sub000/llm/providers/clibase"
	"go.uber.org/zap"
)

const name = "claude_code"

// Provider implements llm.Provider over the claude CLI subprocess.
type Provider struct {
	runner *clibase.Runner
}

// New creates the claude_code provider. cfg.Command defaults to "claude".
func New(cfg providers.CLIConfig, logger *zap.Logger) *Provider {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}
	return &Provider{runner: clibase.NewRunner(command, cfg.Args, cfg.Model, logger)}
}

func (p *Provider) Name() string { return name }

func (p *Provider) SupportsEmbedding() bool { return false }

func (p *Provider) Probe(ctx context.Context) (bool, error) {
	return p.runner.Probe(ctx)
}

func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return p.runner.Chat(ctx, req, name)
}

func (p *Provider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	return nil, llm.EmbeddingUnsupported(name)
}
