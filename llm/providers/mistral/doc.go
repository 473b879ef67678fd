// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 mistral 提供 Mistral AI 模型的 Provider 适配实现，直接对接其
OpenAI 兼容的 Chat Completions 与 Embeddings 端点。

# 核心结构体

  - Provider — 持有 http.Client 与 MistralConfig；使用 Bearer Token 认证

# 定制行为

  - 默认 BaseURL: https://api.mistral.ai
  - 默认兜底模型: mistral-medium
  - 超时始终钳制在 45 秒以内（付费、兜底 Provider，不值得长时间等待）
  - Embedding: 通过 /v1/embeddings 端点，默认模型 codestral-embed

# 支持能力

  - Chat Completion（同步，/v1/chat/completions）
  - Embedding（/v1/embeddings）
  - Probe：仅需 API Key
*/
package mistral
