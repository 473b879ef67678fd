package llm

import (
	"context"

	"github.com/rashee1997/orchestrator-sub000/llm/circuitbreaker"
	"go.uber.org/zap"
)

// ResilientProvider decorates a Provider with a circuit breaker so a
// backend stuck returning transient errors is tripped out of rotation
// instead of being hammered into a cascading timeout. Retry/backoff policy
// is the router's job, not this decorator's — it either lets a call
// through or fails fast with the breaker's open-circuit error.
type ResilientProvider struct {
	provider Provider
	breaker  circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewResilientProvider wraps provider with breaker. A nil breaker falls
// back to circuitbreaker.DefaultConfig().
func NewResilientProvider(provider Provider, breaker circuitbreaker.CircuitBreaker, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(), logger)
	}
	return &ResilientProvider{provider: provider, breaker: breaker, logger: logger}
}

func (rp *ResilientProvider) Name() string { return rp.provider.Name() }

func (rp *ResilientProvider) SupportsEmbedding() bool { return rp.provider.SupportsEmbedding() }

func (rp *ResilientProvider) Probe(ctx context.Context) (bool, error) {
	return rp.provider.Probe(ctx)
}

func (rp *ResilientProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	result, err := rp.breaker.CallWithResult(ctx, func() (any, error) {
		return rp.provider.Chat(ctx, req)
	})
	if err != nil {
		var zero ChatResponse
		return zero, err
	}
	return result.(ChatResponse), nil
}

func (rp *ResilientProvider) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	result, err := rp.breaker.CallWithResult(ctx, func() (any, error) {
		return rp.provider.Embed(ctx, model, inputs)
	})
	if err != nil {
		return nil, err
	}
	return result.([][]float32), nil
}

// State reports the breaker's current state, exposed for health
// endpoints and the registry's availability view.
func (rp *ResilientProvider) State() circuitbreaker.State {
	return rp.breaker.State()
}
