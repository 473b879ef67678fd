package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

// RegistryEntry pairs a provider-agnostic ModelInfo with the live Provider
// instance that serves it.
type RegistryEntry struct {
	Info     types.ModelInfo
	Provider Provider
}

// Registry is the immutable, startup-built index of every configured
// model. It is built once by NewRegistry and never mutated afterward,
// except for the Availability flip the router records via
// MarkUnavailable when a provider starts failing auth at runtime.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]RegistryEntry
	order   []string // insertion order, for deterministic iteration
	logger  *zap.Logger
}

// NewRegistry probes every supplied (ModelInfo, Provider) pair and builds
// the queryable index. Probing happens once, at construction; Available
// reflects the Probe() result observed at startup, not a live check.
func NewRegistry(ctx context.Context, candidates []RegistryEntry, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries: make(map[string]RegistryEntry, len(candidates)),
		logger:  logger,
	}
	for _, c := range candidates {
		available, err := c.Provider.Probe(ctx)
		if err != nil {
			logger.Warn("registry probe failed",
				zap.String("model", c.Info.Name),
				zap.String("provider", string(c.Info.Provider)),
				zap.Error(err))
			available = false
		}
		c.Info.Available = available
		r.entries[c.Info.Name] = c
		r.order = append(r.order, c.Info.Name)
	}
	return r
}

// Get returns the registry entry for a model name.
func (r *Registry) Get(name string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// ByProvider returns every model belonging to a given provider, in
// insertion order.
func (r *Registry) ByProvider(provider types.ProviderName) []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RegistryEntry
	for _, name := range r.order {
		e := r.entries[name]
		if e.Info.Provider == provider {
			out = append(out, e)
		}
	}
	return out
}

// ByCapability returns every available model whose capability tier equals
// the requested one (models of other tiers are not included), ordered so
// that cheaper cost tiers sort first — the router queries this list to
// build a candidate chain.
func (r *Registry) ByCapability(level types.CapabilityLevel) []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RegistryEntry
	for _, name := range r.order {
		e := r.entries[name]
		if e.Info.Capability == level && e.Info.Available {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return costRank(out[i].Info.CostTier) < costRank(out[j].Info.CostTier)
	})
	return out
}

// ByAuthMethod returns every model using the given auth method, regardless
// of availability.
func (r *Registry) ByAuthMethod(method types.AuthMethod) []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RegistryEntry
	for _, name := range r.order {
		e := r.entries[name]
		if e.Info.AuthMethod == method {
			out = append(out, e)
		}
	}
	return out
}

// All returns every registered entry in insertion order.
func (r *Registry) All() []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegistryEntry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// MarkUnavailable flips a model's Available flag off after a runtime auth
// failure. It is the one mutation the registry permits post-construction;
// it never flips a model back to available — that requires a restart.
func (r *Registry) MarkUnavailable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.Info.Available = false
	r.entries[name] = e
	r.logger.Warn("model marked unavailable", zap.String("model", name))
}

// Resolve looks up a provider instance by model name, returning a
// not-found error that carries ErrModelNotFound so callers can match on
// it.
func (r *Registry) Resolve(name string) (Provider, error) {
	e, ok := r.Get(name)
	if !ok {
		return nil, types.NewError(types.ErrModelNotFound, fmt.Sprintf("model %q is not registered", name))
	}
	return e.Provider, nil
}

func costRank(tier types.CostTier) int {
	switch tier {
	case types.CostFree:
		return 0
	case types.CostSubscription:
		return 1
	case types.CostPaid:
		return 2
	default:
		return 3
	}
}
