// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package promptlib implements the Prompt Library (component J): every
prompt sent to an LLM across the DMQR generator, the iterative
controller, and the answer synthesizer/verifier is rendered from a
`.tmpl` asset embedded at build time via embed.FS, rather than built up
ad hoc with string concatenation. Templates are parsed once at package
init and rendered through text/template; a template referencing an
undefined field fails loudly at render time rather than silently
producing a malformed prompt.
*/
package promptlib
