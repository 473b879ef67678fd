// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 gemini 提供 Google Gemini 模型的 Provider 适配实现，直接对接 Gemini
REST API（generativelanguage.googleapis.com），自行处理单轮请求构建与响应
解析。

# 核心结构体

  - Provider — 持有 http.Client 与 GeminiConfig；使用 x-goog-api-key 请求头认证
  - geminiRequest / geminiResponse — Gemini 原生请求/响应结构

# 构造函数

  - New(cfg, logger) — 创建实例，默认模型 gemini-2.0-flash

# 支持能力

  - 单轮 Chat（/v1beta/models/{model}:generateContent）
  - Embedding（/v1beta/models/{model}:batchEmbedContents）
  - Probe：API Key 或 OAuth 凭证文件探测可用性
  - RateLimitRPM：按 OAuth/API Key/Flash-Lite 变体解析 RPM 上限
*/
package gemini
