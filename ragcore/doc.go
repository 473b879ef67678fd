// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package ragcore is the external-interface facade (§6): it exposes
ExecuteTask, RetrieveContextForPrompt, RetrieveContextByEntityNames, and
Answer over the Router (C), Retriever (F), Controller (H), and
Synthesizer/Verifier (I) built by the rest of this module. Answer never
raises for missing context — a failed or empty result always comes back
as a structured AnswerResponse, with an Error field populated only when
answer synthesis itself returns an error.
*/
package ragcore
