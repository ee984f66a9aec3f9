package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures all tunable settings for the mailpilot MCP server and CLI.
type Config struct {
	Server ServerConfig `yaml:"server"`
	App    AppConfig    `yaml:"app"`
	MCP    MCPConfig    `yaml:"mcp"`
	Trace  TraceConfig  `yaml:"trace"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// AppConfig describes how we find and attach to the mail client's debugging
// endpoint, and the timing contracts for operations that have no completion
// signal from the app.
type AppConfig struct {
	// Host of the remote-debugging endpoint (default: 127.0.0.1).
	DebugHost string `yaml:"debug_host"`
	// Port of the remote-debugging endpoint.
	DebugPort int `yaml:"debug_port"`
	// Origin prefix of the app's primary UI context, e.g. "https://mail.example.com".
	// Target discovery matches page targets whose URL starts with this prefix.
	Origin string `yaml:"origin"`
	// Optional launch command used when the caller decides to start the app
	// after a refused connection (e.g. ["/usr/bin/mailclient", "--remote-debugging-port=9333"]).
	Launch []string `yaml:"launch"`
	// Timeout for attaching to the debugging endpoint (e.g. "10s").
	AttachTimeout string `yaml:"attach_timeout"`
	// Timeout for a single remote evaluation round trip (e.g. "15s").
	EvalTimeout string `yaml:"eval_timeout"`
	// Settle window for draft key discovery after a compose-open action (e.g. "5s").
	ComposeSettle string `yaml:"compose_settle"`
	// Poll interval used while scanning for the new draft key (e.g. "200ms").
	ComposePoll string `yaml:"compose_poll"`
	// Fixed wait after a draft save before reporting durability (e.g. "1500ms").
	SaveSettle string `yaml:"save_settle"`
	// Propagation delay applied after an account switch before reads are
	// trusted to reflect the new account's data.
	SwitchSettle string `yaml:"switch_settle"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// TraceConfig controls the rotating gateway flight recorder.
type TraceConfig struct {
	Enable bool   `yaml:"enable"`
	Dir    string `yaml:"dir"`
}

// DefaultConfig provides reasonable defaults for local use.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "mailpilot-mcp",
			Version: "0.3.1",
			LogFile: "mailpilot-mcp.log",
		},
		App: AppConfig{
			DebugHost:     "127.0.0.1",
			DebugPort:     9333,
			AttachTimeout: "10s",
			EvalTimeout:   "15s",
			ComposeSettle: "5s",
			ComposePoll:   "200ms",
			SaveSettle:    "1500ms",
			SwitchSettle:  "2s",
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Trace: TraceConfig{
			Enable: true,
			Dir:    "data/traces",
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate ensures required fields exist so startup fails deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.App.DebugPort <= 0 || c.App.DebugPort > 65535 {
		return fmt.Errorf("app.debug_port must be a valid TCP port, got %d", c.App.DebugPort)
	}
	if c.App.Origin == "" {
		return errors.New("app.origin is required (URL prefix of the mail client's UI context)")
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// GetAttachTimeout returns the parsed attach timeout with a sane default.
func (a AppConfig) GetAttachTimeout() time.Duration {
	return parseDuration(a.AttachTimeout, 10*time.Second)
}

// GetEvalTimeout returns the parsed evaluation timeout with a sane default.
func (a AppConfig) GetEvalTimeout() time.Duration {
	return parseDuration(a.EvalTimeout, 15*time.Second)
}

// GetComposeSettle returns the draft-key discovery window.
func (a AppConfig) GetComposeSettle() time.Duration {
	return parseDuration(a.ComposeSettle, 5*time.Second)
}

// GetComposePoll returns the draft-key scan interval.
func (a AppConfig) GetComposePoll() time.Duration {
	return parseDuration(a.ComposePoll, 200*time.Millisecond)
}

// GetSaveSettle returns the post-save settle interval.
func (a AppConfig) GetSaveSettle() time.Duration {
	return parseDuration(a.SaveSettle, 1500*time.Millisecond)
}

// GetSwitchSettle returns the account-switch propagation delay.
func (a AppConfig) GetSwitchSettle() time.Duration {
	return parseDuration(a.SwitchSettle, 2*time.Second)
}

// DebugURL returns the HTTP address of the remote-debugging endpoint.
func (a AppConfig) DebugURL() string {
	host := a.DebugHost
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, a.DebugPort)
}
