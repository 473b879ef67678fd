// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types holds the shared data model for the agentic RAG core:
AgentId, TaskType, ModelInfo, TaskDistributionRule, ModelStats,
RetrievalOptions, RetrievedContextItem, QueryIntent, DiverseQuery,
TurnRecord, Citation, SessionContext, and the structured Error taxonomy. It
depends on nothing else in the module so every other package can depend on
it without cycles.

# Core types

  - TaskType / TaskTier       — closed enum of task kinds and their complexity tiers
  - ModelInfo                 — registry entry: provider, capability, cost tier, rate limit, auth method
  - TaskDistributionRule      — per-TaskType preferred + fallback model ordering
  - ModelStats                — running success/failure/avg_time_ms counters
  - RetrievalOptions          — strongly-typed retrieval knobs (no untyped options bag)
  - RetrievedContextItem      — one unit of retrieved context with a fused relevance score
  - QueryIntent               — find_example / refactor_code / debug_error / add_feature / understand_code / general_query
  - DiverseQuery              — one strategically-tagged query produced by DMQR
  - TurnRecord / Citation     — append-only controller turn log and answer citations
  - Error / ErrorCode         — structured error carrying retry/auth semantics
*/
package types
