// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package retrieval implements the Context Retriever (component F): given
an agent-scoped prompt, it runs the eleven-step adaptive pipeline
described in the system design — cache probe, parallel intent/entity
analysis, direct entity lookup, intent-weighted four-source fan-out, RRF
fusion, heuristic relevance validation, AI filtering, gap-fill, proactive
expansion, and final dedup/truncation — bounded by an adaptive wall-clock
timeout that falls back to a stale cache entry or a synthetic item
rather than ever raising to the caller.

The in-process cache (cache.go) is a doubly-linked-list LRU adapted from
the prompt cache's local tier, generalized to remember a stale, expired
entry for fallback instead of discarding it outright, and to evict the
oldest 30% of entries in one pass when over capacity rather than one
entry at a time.
*/
package retrieval
