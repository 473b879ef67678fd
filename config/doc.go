// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config loads and validates the ragcore process configuration.

Config is merged in priority order: built-in defaults, then an optional
YAML file, then environment variables (RAGCORE_ prefix by default). It
covers the API, Router, Retriever, Controller, Providers, Log, and
Telemetry sections.

	cfg, err := config.NewLoader().
		WithConfigPath("config.yaml").
		WithEnvPrefix("RAGCORE").
		Load()
*/
package config
