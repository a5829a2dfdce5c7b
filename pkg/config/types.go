package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config is the persistent folio configuration stored as config.toml in the
// .folio/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Chat        ChatConfig        `toml:"chat"`
	Server      ServerConfig      `toml:"server"`
	Client      ClientConfig      `toml:"client"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// UpstreamConfig points folio serve and folio ask at the model API.
type UpstreamConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout, returning 0 when it is unset.
func (u UpstreamConfig) TimeoutDuration() (time.Duration, error) {
	if u.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(u.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid upstream.timeout: %w", err)
	}
	return d, nil
}

// ChatConfig holds the prompt and sampling defaults applied by the chat
// server. Nil sampling values are left to the upstream.
type ChatConfig struct {
	SystemPrompt string   `toml:"system_prompt,omitempty"`
	Temperature  *float64 `toml:"temperature,omitempty"`
	MaxTokens    *int     `toml:"max_tokens,omitempty"`
	TopP         *float64 `toml:"top_p,omitempty"`
}

// ServerConfig holds folio serve settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for commands that talk to a running folio
// server (folio chat). Target is a full URL.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
	Path   string `toml:"path,omitempty"`
}

// StorageConfig selects where recorded turns go.
// Provider is one of "none", "memory", "sqlite" or "postgres".
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig selects where turn events are published.
// Provider is "none" or "kafka"; Brokers is a comma separated list.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// TelemetryConfig enables OTLP/HTTP trace export when Endpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint,omitempty"`
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

// floatKey handles optional floats; an empty value clears the setting.
func floatKey(name string, field func(c *Config) **float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if p := *field(c); p != nil {
				return strconv.FormatFloat(*p, 'f', -1, 64)
			}
			return ""
		},
		set: func(c *Config, v string) error {
			if v == "" {
				*field(c) = nil
				return nil
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = &f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"upstream.base_url": stringKey(func(c *Config) *string { return &c.Upstream.BaseURL }),
	"upstream.api_key":  stringKey(func(c *Config) *string { return &c.Upstream.APIKey }),
	"upstream.model":    stringKey(func(c *Config) *string { return &c.Upstream.Model }),

	"upstream.timeout": {
		get: func(c *Config) string { return c.Upstream.Timeout },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for upstream.timeout: %w", err)
				}
			}
			c.Upstream.Timeout = v
			return nil
		},
	},

	"chat.system_prompt": stringKey(func(c *Config) *string { return &c.Chat.SystemPrompt }),
	"chat.temperature":   floatKey("chat.temperature", func(c *Config) **float64 { return &c.Chat.Temperature }),
	"chat.top_p":         floatKey("chat.top_p", func(c *Config) **float64 { return &c.Chat.TopP }),

	"chat.max_tokens": {
		get: func(c *Config) string {
			if c.Chat.MaxTokens == nil {
				return ""
			}
			return strconv.Itoa(*c.Chat.MaxTokens)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Chat.MaxTokens = nil
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for chat.max_tokens: %q must be a positive integer", v)
			}
			c.Chat.MaxTokens = &n
			return nil
		},
	},

	"server.listen":        stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"client.target":        stringKey(func(c *Config) *string { return &c.Client.Target }),
	"client.path":          stringKey(func(c *Config) *string { return &c.Client.Path }),
	"storage.provider":     enumKey("storage.provider", func(c *Config) *string { return &c.Storage.Provider }, StorageProviders()),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"eventstream.provider": enumKey("eventstream.provider", func(c *Config) *string { return &c.EventStream.Provider }, EventStreamProviders()),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"telemetry.otlp_endpoint": stringKey(func(c *Config) *string { return &c.Telemetry.OTLPEndpoint }),
}

func enumKey(name string, field func(c *Config) *string, allowed []string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (allowed: %v)", name, v, allowed)
		},
	}
}
