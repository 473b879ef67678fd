// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package jsonrepair extracts and repairs JSON embedded in free-form LLM
output. Extraction strips Markdown code fences the way
converter.JSONConverter does for structured chat output, then a
tidwall/gjson validity check gates whether a regex repair (line
comments and trailing commas removed via dlclark/regexp2)
is attempted before falling back to an LLM-assisted repair prompt.

If every repair attempt fails, Repair returns the original text
unchanged and reports ok=false; callers that need a typed result decide
for themselves whether that is fatal.
*/
package jsonrepair
