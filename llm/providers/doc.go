// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供跨模型服务商的通用适配与辅助能力，是 gemini、mistral 与
CLI 子进程 Provider 实现的公共基础层。

# 核心类型

  - BaseProviderConfig — 所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - GeminiConfig / MistralConfig / CLIConfig — 各 Provider 的专有配置

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage — 从错误响应体中提取可读消息
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
  - SafeCloseBody — 安全关闭 HTTP 响应体

# 支持能力

  - 统一错误语义映射（401/403/429/5xx/529 等）
*/
package providers
