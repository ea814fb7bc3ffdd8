package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent flowstream configuration stored as
// config.toml in the .flowstream/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	App       AppConfig       `toml:"app"`
	Server    ServerConfig    `toml:"server"`
	Stream    StreamConfig    `toml:"stream"`
	Engine    EngineConfig    `toml:"engine"`
	Storage   StorageConfig   `toml:"storage"`
	Publisher PublisherConfig `toml:"publisher"`
	MCP       MCPConfig       `toml:"mcp"`
	Client    ClientConfig    `toml:"client"`
}

// AppConfig holds deployment-wide settings.
type AppConfig struct {
	// Env is "development" or "production". Production restricts CORS.
	Env         string   `toml:"env,omitempty"`
	FrontendURL string   `toml:"frontend_url,omitempty"`
	CORSOrigins []string `toml:"cors_origins,omitempty"`
}

// Production reports whether the app runs in production mode.
func (a AppConfig) Production() bool {
	return strings.EqualFold(a.Env, "production")
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StreamConfig holds stream supervisor settings.
type StreamConfig struct {
	TimeoutSeconds       uint `toml:"timeout_seconds,omitempty"`
	ShutdownGraceSeconds uint `toml:"shutdown_grace_seconds,omitempty"`
}

// EngineConfig selects and tunes the workflow engine.
type EngineConfig struct {
	Name        string      `toml:"name,omitempty"`
	MockDelayMS uint        `toml:"mock_delay_ms,omitempty"`
	Basic       ModelConfig `toml:"basic_model"`
}

// ModelConfig points the upstream engine at an OpenAI-compatible endpoint.
type ModelConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
}

// StorageConfig selects where session outcomes are recorded. When both are
// empty outcomes are kept in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// PublisherConfig selects where session-ended events are published. When
// both are empty events are dropped.
type PublisherConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
	RedisAddr    string `toml:"redis_addr,omitempty"`
	RedisStream  string `toml:"redis_stream,omitempty"`
}

// MCPConfig holds settings for MCP server metadata lookups.
type MCPConfig struct {
	TimeoutSeconds uint `toml:"timeout_seconds,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"app.env":          stringKey(func(c *Config) *string { return &c.App.Env }),
	"app.frontend_url": stringKey(func(c *Config) *string { return &c.App.FrontendURL }),
	"app.cors_origins": {
		get: func(c *Config) string { return strings.Join(c.App.CORSOrigins, ",") },
		set: func(c *Config, v string) error {
			c.App.CORSOrigins = splitList(v)
			return nil
		},
	},
	"server.listen":                 stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"stream.timeout_seconds":        uintKey("stream.timeout_seconds", func(c *Config) *uint { return &c.Stream.TimeoutSeconds }),
	"stream.shutdown_grace_seconds": uintKey("stream.shutdown_grace_seconds", func(c *Config) *uint { return &c.Stream.ShutdownGraceSeconds }),
	"engine.name":                   stringKey(func(c *Config) *string { return &c.Engine.Name }),
	"engine.mock_delay_ms":          uintKey("engine.mock_delay_ms", func(c *Config) *uint { return &c.Engine.MockDelayMS }),
	"engine.basic_model.base_url":   stringKey(func(c *Config) *string { return &c.Engine.Basic.BaseURL }),
	"engine.basic_model.model":      stringKey(func(c *Config) *string { return &c.Engine.Basic.Model }),
	"engine.basic_model.api_key":    stringKey(func(c *Config) *string { return &c.Engine.Basic.APIKey }),
	"storage.sqlite_path":           stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":          stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"publisher.kafka_brokers":       stringKey(func(c *Config) *string { return &c.Publisher.KafkaBrokers }),
	"publisher.kafka_topic":         stringKey(func(c *Config) *string { return &c.Publisher.KafkaTopic }),
	"publisher.redis_addr":          stringKey(func(c *Config) *string { return &c.Publisher.RedisAddr }),
	"publisher.redis_stream":        stringKey(func(c *Config) *string { return &c.Publisher.RedisStream }),
	"mcp.timeout_seconds":           uintKey("mcp.timeout_seconds", func(c *Config) *uint { return &c.MCP.TimeoutSeconds }),
	"client.api_target":             stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"app.env",
	"app.frontend_url",
	"app.cors_origins",
	"server.listen",
	"stream.timeout_seconds",
	"stream.shutdown_grace_seconds",
	"engine.name",
	"engine.mock_delay_ms",
	"engine.basic_model.base_url",
	"engine.basic_model.model",
	"engine.basic_model.api_key",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"publisher.kafka_brokers",
	"publisher.kafka_topic",
	"publisher.redis_addr",
	"publisher.redis_stream",
	"mcp.timeout_seconds",
	"client.api_target",
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
