// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package dmqr implements Diverse Multi-Query Rewriting (component G): it
expands one user query into N ∈ [2,5] DiverseQuery objects, each tagged
with a distinct strategic axis (architectural overview, component
relationships, implementation deep-dive, data flow, error handling,
performance, security, configuration) and the query intent. A
DiverseQuery carries no modality tag.
*/
package dmqr
