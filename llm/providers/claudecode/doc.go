// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 claudecode 通过子进程调用 claude CLI 实现 llm.Provider，而非访问 HTTP
API。写入 stdin 的是单轮 [{role:"user",content:...}] JSON，从 stdout 读取
的是逐行 stream-json 事件，拼接其中 assistant 消息的文本分片。

# 支持能力

  - Chat：单轮请求，超时钳制在 10 分钟内，stdout 缓冲上限 1 GiB
  - Probe：`claude --version`，5 秒超时；ENOENT 将可用性永久置为 false

# 不支持能力

  - Embed：该 CLI 不提供向量化能力
*/
package claudecode
