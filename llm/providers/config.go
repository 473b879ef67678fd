package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
// 通过嵌入此结构体，各 Provider 的 Config 自动获得 APIKey、BaseURL、Model、Timeout 四个字段，
// 避免重复定义。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Models  []string      `json:"models,omitempty" yaml:"models,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GeminiConfig Gemini Provider 配置
type GeminiConfig struct {
	BaseProviderConfig `yaml:",inline"`
	ProjectID          string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Region             string `json:"region,omitempty" yaml:"region,omitempty"`
	// AuthType is "api_key" (default) or "oauth". The gemini provider does
	// not read it: it treats OAuth as present when its credentials file
	// exists, which raises the per-model RPM ceiling (see the gemini
	// Provider.RateLimitRPM).
	AuthType       string `json:"auth_type,omitempty" yaml:"auth_type,omitempty"`
	OAuthCredsPath string `json:"oauth_creds_path,omitempty" yaml:"oauth_creds_path,omitempty"`
}

// MistralConfig Mistral AI Provider 配置. Mistral is always paid and is
// placed last in every candidate list.
type MistralConfig struct {
	BaseProviderConfig `yaml:",inline"`
}

// CLIConfig configures a CLI-subprocess provider (claude_code / qwen_code).
type CLIConfig struct {
	// Command is the executable name resolved against PATH, e.g. "claude" or "qwen".
	Command string        `json:"command" yaml:"command"`
	Args    []string      `json:"args,omitempty" yaml:"args,omitempty"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}
