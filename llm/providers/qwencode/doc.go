// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 qwencode 通过子进程调用 qwen CLI 实现 llm.Provider，协议与
claudecode 完全一致（stdin JSON 单轮消息，stdout stream-json 事件）。

# 支持能力

  - Chat：单轮请求，超时钳制在 10 分钟内
  - Probe：`qwen --version`，5 秒超时；ENOENT 将可用性永久置为 false

# 不支持能力

  - Embed：该 CLI 不提供向量化能力
*/
package qwencode
