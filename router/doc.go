// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package router implements the Task Router / Orchestrator: it maps a
TaskType to an ordered candidate model list, executes with per-model
retries and fallback, and runs the reply through jsonrepair when the
task or the output shape warrants it.

# Rule resolution

At construction, NewRouter asks the registry for every available model
in each ComplexityTier and lays out rg.candidates[TaskType] as
[preferred, ...fallbacks], with CostTier ordering pushing paid models
(Mistral) to the back of each tier's list. A context_length above a
fixed 32,000 budget prepends a high-capacity override list (the
CapabilityComplex models) ahead of the tier's normal candidates; a
rule's MaxContextLength is not consulted.

# Execution

Execute retries each candidate up to MaxRetries times with exponential
backoff from retry.DefaultRetryPolicy (1s initial delay, doubling, with
jitter) before moving to the next candidate. A rate-limit or
transient error on one model never disqualifies the remaining
candidates. Every attempt updates that model's rolling types.ModelStats.
If every candidate is exhausted, Execute returns a types.ErrTaskFailed
error wrapping the last underlying failure.
*/
package router
