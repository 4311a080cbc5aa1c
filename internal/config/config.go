// Package config loads and validates rulehound configuration. Config files
// are JSON5 so they can carry comments and trailing commas; a handful of
// RULEHOUND_* environment variables override file values for credentials
// and endpoints.
package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"

	"github.com/rulehound/rulehound/internal/mcp"
)

const (
	DefaultModel           = "gpt-4o"
	DefaultAPIBase         = "https://api.openai.com/v1"
	DefaultMaxTokens       = 8000
	DefaultMaxSteps        = 50
	DefaultToolTimeoutSec  = 60
	DefaultCacheSize       = 256
	DefaultMaxResultTokens = 4000
)

// ProviderConfig holds the LLM endpoint settings.
type ProviderConfig struct {
	APIBase   string `json:"apiBase"`
	APIKey    string `json:"apiKey"`
	Model     string `json:"model"`
	MaxTokens int    `json:"maxTokens"`
}

// AgentConfig bounds the reasoning loop.
type AgentConfig struct {
	MaxSteps int `json:"maxSteps"`
}

// ToolConfig tunes tool execution.
type ToolConfig struct {
	TimeoutSec      int `json:"timeoutSec"`
	CacheSize       int `json:"cacheSize"`
	MaxResultTokens int `json:"maxResultTokens"`
}

// Config is the full rulehound configuration.
type Config struct {
	Provider ProviderConfig     `json:"provider"`
	Agent    AgentConfig        `json:"agent"`
	Tools    ToolConfig         `json:"tools"`
	Servers  []mcp.ServerConfig `json:"servers"`
}

// Default returns a Config with every tunable at its default.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			APIBase:   DefaultAPIBase,
			Model:     DefaultModel,
			MaxTokens: DefaultMaxTokens,
		},
		Agent: AgentConfig{MaxSteps: DefaultMaxSteps},
		Tools: ToolConfig{
			TimeoutSec:      DefaultToolTimeoutSec,
			CacheSize:       DefaultCacheSize,
			MaxResultTokens: DefaultMaxResultTokens,
		},
	}
}

// Load reads a JSON5 config file, falling back to defaults when path is
// empty or the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RULEHOUND_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("RULEHOUND_API_BASE"); v != "" {
		c.Provider.APIBase = v
	}
	if v := os.Getenv("RULEHOUND_MODEL"); v != "" {
		c.Provider.Model = v
	}
}

// fillDefaults backfills zero values left by a sparse config file.
func (c *Config) fillDefaults() {
	if c.Provider.APIBase == "" {
		c.Provider.APIBase = DefaultAPIBase
	}
	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModel
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = DefaultMaxTokens
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = DefaultMaxSteps
	}
	if c.Tools.TimeoutSec == 0 {
		c.Tools.TimeoutSec = DefaultToolTimeoutSec
	}
	if c.Tools.CacheSize == 0 {
		c.Tools.CacheSize = DefaultCacheSize
	}
	if c.Tools.MaxResultTokens == 0 {
		c.Tools.MaxResultTokens = DefaultMaxResultTokens
	}
	for i := range c.Servers {
		if c.Servers[i].Transport == "" {
			c.Servers[i].Transport = mcp.TransportStdio
		}
		if c.Servers[i].TimeoutSec == 0 {
			c.Servers[i].TimeoutSec = c.Tools.TimeoutSec
		}
	}
}

// Validate rejects out-of-range tunables before anything is dialed.
func (c *Config) Validate() error {
	if c.Provider.MaxTokens < 1000 || c.Provider.MaxTokens > 32000 {
		return fmt.Errorf("provider.maxTokens %d out of range [1000, 32000]", c.Provider.MaxTokens)
	}
	if c.Agent.MaxSteps < 10 || c.Agent.MaxSteps > 500 {
		return fmt.Errorf("agent.maxSteps %d out of range [10, 500]", c.Agent.MaxSteps)
	}
	if c.Tools.TimeoutSec < 1 {
		return fmt.Errorf("tools.timeoutSec must be at least 1, got %d", c.Tools.TimeoutSec)
	}
	for i, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}
		switch s.Transport {
		case mcp.TransportStdio:
			if s.Command == "" {
				return fmt.Errorf("server %s: stdio transport requires a command", s.Name)
			}
		case mcp.TransportHTTP:
			if s.URL == "" {
				return fmt.Errorf("server %s: http transport requires a url", s.Name)
			}
		default:
			return fmt.Errorf("server %s: unknown transport %q", s.Name, s.Transport)
		}
	}
	return nil
}

// DefaultServers synthesizes the server list used when the config names
// none: a filesystem server rooted at the directory under analysis.
func DefaultServers(dir string) []mcp.ServerConfig {
	return []mcp.ServerConfig{{
		Name:      "filesystem",
		Transport: mcp.TransportStdio,
		Command:   "npx",
		Args:      []string{"-y", "@modelcontextprotocol/server-filesystem", dir},
	}}
}
