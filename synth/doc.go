// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package synth implements the Answer Synthesizer + Verifier (component I).
Synthesize turns an accumulated context set into a structured,
citation-bearing answer: every factual claim is expected to carry a
[cite_N] marker with 1 <= N <= total_sources, [cite_0] is invalid, and a
hallucinated out-of-range citation is reported under the result's Issues
rather than raised as a Go error — citation bound violations are an
invariant violation that surfaces to the caller as structured state, never
a silently dropped exception.

Verify runs a second LLM pass that judges per-claim support, citation
validity, completeness, coherence, and technical accuracy on a [0,1]
scale; any score below 0.8 signals the caller (the iterative controller)
should either run one corrective iteration or append a limitations
section.
*/
package synth
