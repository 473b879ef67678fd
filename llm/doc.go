// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package llm provides the single-turn Provider abstraction and the
immutable Model Registry that sits above it.

# Overview

Every backend — gemini, mistral, claude_code, qwen_code — implements the
same narrow Provider contract: one request in, one response out, no
streaming, no tool calling, no multi-message history. The router (see
package router) owns retries, fallback, and per-model statistics; a
Provider only ever answers a single Chat or Embed call.

# Provider Interface

	type Provider interface {
	    Name() string
	    Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	    Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
	    SupportsEmbedding() bool
	    Probe(ctx context.Context) (bool, error)
	}

Probe reports whether a provider's credentials are resolvable right now —
an API key present, an OAuth credential file on disk, or a CLI binary
found on PATH. It never makes a billed call.

# Registry

NewRegistry builds an immutable, startup-time index of every configured
model, keyed by name, provider, capability tier, and auth method. The
router resolves a TaskType to a candidate list purely by querying the
registry; the registry itself calls a provider only to Probe it once,
at construction.

# Resilience

ResilientProvider wraps a Provider with a circuit breaker (see package
circuitbreaker) so a provider stuck returning transient errors is
tripped out of rotation instead of being retried into a cascading
timeout. Retry/backoff policy lives in the router, not here.

# Error Handling

Errors are the shared types.Error taxonomy re-exported from this
package (ErrRateLimit, ErrAuthentication, ErrModelNotFound, ...). Use
IsRetryable to decide whether a caller should attempt a fallback model.
*/
package llm
