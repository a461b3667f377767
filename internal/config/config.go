// Package config loads and resolves Anuris configuration.
package config

import "time"

// Config is the root configuration for Anuris.
type Config struct {
	Models Models `json:"models"`
	Agent  Agent  `json:"agent"`
	Skills Skills `json:"skills"`
	Team   Team   `json:"team"`
}

// Models holds model provider configuration.
type Models struct {
	Default   string              `json:"default"`
	Providers map[string]Provider `json:"providers"`
}

// Provider configures a single LLM provider.
type Provider struct {
	Driver    string         `json:"driver"` // "anthropic", "openai", "ollama"
	Model     string         `json:"model"`
	BaseURL   string         `json:"base_url,omitempty"`
	APIKey    string         `json:"api_key,omitempty"` // direct key or ${{ .Env.VAR }} template
	MaxTokens int            `json:"max_tokens,omitempty"`
	Timeout   Duration       `json:"timeout,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// Agent holds loop engine settings.
type Agent struct {
	SystemPrompt     string   `json:"system_prompt,omitempty"`
	MaxRounds        int      `json:"max_rounds,omitempty"`        // default 16
	ContextWindow    int      `json:"context_window,omitempty"`    // token budget, default 100000
	CompactThreshold float64  `json:"compact_threshold,omitempty"` // trigger ratio, default 0.80
	ToolTimeout      Duration `json:"tool_timeout,omitempty"`      // per shell tool run, default 120s
}

// Skills configures skill discovery.
type Skills struct {
	Dirs []string `json:"dirs,omitempty"` // override discovery directories
}

// Team configures teammate coordination.
type Team struct {
	Name string `json:"name,omitempty"` // roster name, default "default"
}

// ApplyDefaults fills zero values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Agent.MaxRounds == 0 {
		c.Agent.MaxRounds = 16
	}
	if c.Agent.ContextWindow == 0 {
		c.Agent.ContextWindow = 100000
	}
	if c.Agent.CompactThreshold == 0 {
		c.Agent.CompactThreshold = 0.80
	}
	if c.Agent.ToolTimeout == 0 {
		c.Agent.ToolTimeout = Duration(120 * time.Second)
	}
	if c.Team.Name == "" {
		c.Team.Name = "default"
	}
}

// Duration wraps time.Duration for JSON unmarshaling from "90s"-style strings.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}
