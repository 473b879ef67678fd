// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package controller implements the iterative retrieval state machine
(component H): INIT -> PLAN -> RETRIEVE -> REFLECT -> {ANSWER, PLAN,
CORRECT, WEB}. REFLECT scores the accumulated context with a quality
formula and lets an LLM choose the next state, but a set of deterministic
guardrails can override that choice and force ANSWER regardless of what
the model picks. Every REFLECT decision appends exactly one
types.TurnRecord to the session log; the log is never mutated or
truncated.
*/
package controller
