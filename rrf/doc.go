// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package rrf implements Reciprocal Rank Fusion: given N independently
ranked lists over the same item universe, it produces a single list
ordered by score_i = Σ 1/(k + rank_i), k=60, summing across every list an
item appears in.

Items are deduplicated by a composite key (type, source path, first 150
content bytes) so the same underlying context item surfaced by two
sources (e.g. semantic search and the knowledge graph) contributes both
ranks to one fused entry instead of appearing twice in the output.
*/
package rrf
