package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Content   ContentConfig   `yaml:"content"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Session   SessionConfig   `yaml:"session"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"CAIRN_SERVER_HOST"`
	Port int    `yaml:"port" env:"CAIRN_SERVER_PORT"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"CAIRN_DB_PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"CAIRN_LOG_LEVEL"`
}

// TransportConfig selects how MCP clients connect: "stdio" or "http".
type TransportConfig struct {
	Mode string `yaml:"mode" env:"CAIRN_TRANSPORT_MODE"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled" env:"CAIRN_AUTH_ENABLED"`
}

// LedgerConfig points at the ledger's JSON-RPC endpoint.
type LedgerConfig struct {
	Endpoint            string        `yaml:"endpoint" env:"CAIRN_LEDGER_ENDPOINT"`
	CallTimeout         time.Duration `yaml:"call_timeout" env:"CAIRN_LEDGER_CALL_TIMEOUT"`
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval" env:"CAIRN_LEDGER_RECEIPT_POLL_INTERVAL"`
	ReceiptTimeout      time.Duration `yaml:"receipt_timeout" env:"CAIRN_LEDGER_RECEIPT_TIMEOUT"`
	// OperatorAddress is the registry account approved to move certificate
	// tokens when a project registers.
	OperatorAddress string `yaml:"operator_address" env:"CAIRN_LEDGER_OPERATOR_ADDRESS"`
}

type ContentConfig struct {
	Gateway string        `yaml:"gateway" env:"CAIRN_CONTENT_GATEWAY"`
	Timeout time.Duration `yaml:"timeout" env:"CAIRN_CONTENT_TIMEOUT"`
	Cache   bool          `yaml:"cache" env:"CAIRN_CONTENT_CACHE"`
}

type ReconcileConfig struct {
	PageSize         int `yaml:"page_size" env:"CAIRN_RECONCILE_PAGE_SIZE"`
	MaxPages         int `yaml:"max_pages" env:"CAIRN_RECONCILE_MAX_PAGES"`
	Concurrency      int `yaml:"concurrency" env:"CAIRN_RECONCILE_CONCURRENCY"`
	ProofConcurrency int `yaml:"proof_concurrency" env:"CAIRN_RECONCILE_PROOF_CONCURRENCY"`
}

// SessionConfig holds the wallet used when no bearer token identifies one,
// which is always the case in stdio mode.
type SessionConfig struct {
	DefaultWallet string `yaml:"default_wallet" env:"CAIRN_SESSION_DEFAULT_WALLET"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"CAIRN_TELEMETRY_ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"CAIRN_TELEMETRY_OTLP_ENDPOINT"`
	SampleRatio  float64 `yaml:"sample_ratio" env:"CAIRN_TELEMETRY_SAMPLE_RATIO"`
	ServiceName  string  `yaml:"service_name" env:"CAIRN_TELEMETRY_SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "cairn.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Ledger: LedgerConfig{
			Endpoint:            "http://127.0.0.1:8545",
			CallTimeout:         10 * time.Second,
			ReceiptPollInterval: time.Second,
			ReceiptTimeout:      2 * time.Minute,
		},
		Content: ContentConfig{
			Gateway: "https://ipfs.io",
			Timeout: 15 * time.Second,
			Cache:   true,
		},
		Reconcile: ReconcileConfig{
			PageSize:         100,
			MaxPages:         50,
			Concurrency:      8,
			ProofConcurrency: 4,
		},
		Telemetry: TelemetryConfig{
			SampleRatio: 1,
			ServiceName: "cairn",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CAIRN_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("transport.mode must be stdio or http, got %q", c.Transport.Mode))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q unknown", c.Log.Level))
	}
	if err := validURL("ledger.endpoint", c.Ledger.Endpoint); err != nil {
		errs = append(errs, err)
	}
	if err := validURL("content.gateway", c.Content.Gateway); err != nil {
		errs = append(errs, err)
	}
	if c.Ledger.CallTimeout <= 0 || c.Ledger.ReceiptPollInterval <= 0 || c.Ledger.ReceiptTimeout <= 0 {
		errs = append(errs, errors.New("ledger timeouts must be positive"))
	}
	if c.Content.Timeout <= 0 {
		errs = append(errs, errors.New("content.timeout must be positive"))
	}
	if c.Reconcile.PageSize < 1 || c.Reconcile.PageSize > 100 {
		errs = append(errs, fmt.Errorf("reconcile.page_size must be 1..100, got %d", c.Reconcile.PageSize))
	}
	if c.Reconcile.MaxPages < 1 {
		errs = append(errs, errors.New("reconcile.max_pages must be positive"))
	}
	if c.Reconcile.Concurrency < 1 || c.Reconcile.ProofConcurrency < 1 {
		errs = append(errs, errors.New("reconcile concurrency must be positive"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be 0..1, got %v", c.Telemetry.SampleRatio))
	}
	return errors.Join(errs...)
}

func validURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", name, raw)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
