// Package config defines the service configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Run modes.
const (
	// ModeServer serves the API from the shared snapshot published by a sync
	// replica.
	ModeServer = "server"
	// ModeSync refreshes and reconciles without serving HTTP.
	ModeSync = "sync"
	// ModeFull refreshes and serves from one process.
	ModeFull = "full"
)

// Config is the root configuration. Fields come from a TOML file and may be
// overridden by YIELDPOOL_* environment variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig locates the yield-pool contract.
type ChainConfig struct {
	RPCURL      string   `toml:"rpc_url"`
	PoolAddress string   `toml:"pool_address"`
	CallTimeout duration `toml:"call_timeout"`
}

// SupabaseConfig holds the PostgreSQL connection of the transaction log.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the Redis connection backing the position cache, the
// signal bus and the rate limiter.
type RedisConfig struct {
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	PositionsTTL duration `toml:"positions_ttl"`
}

// S3Config holds the snapshot archive bucket.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// SyncConfig controls the refresh loop and the reconciliation heuristic.
type SyncConfig struct {
	Interval     duration `toml:"interval"`
	MatchWindow  duration `toml:"match_window"`
	PersistLinks bool     `toml:"persist_links"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port             int      `toml:"port"`
	CORSOrigins      []string `toml:"cors_origins"`
	APIKey           string   `toml:"api_key"`
	RequireSignature bool     `toml:"require_signature"`
	RateLimit        int      `toml:"rate_limit"`
	RateWindow       duration `toml:"rate_window"`
}

// NotifyConfig holds the alert channels.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration decodes TOML strings such as "30s" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used for every field the file and
// environment leave unset.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:      "http://localhost:8545",
			CallTimeout: duration{10 * time.Second},
		},
		Supabase: SupabaseConfig{
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "require",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			PositionsTTL: duration{2 * time.Minute},
		},
		S3: S3Config{
			Region:          "us-east-1",
			UseSSL:          true,
			ArchiveInterval: duration{15 * time.Minute},
		},
		Sync: SyncConfig{
			Interval:    duration{30 * time.Second},
			MatchWindow: duration{30 * time.Second},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"position_unlocked", "refresh_failed"},
		},
		Mode:     ModeFull,
		LogLevel: "info",
	}
}

var validModes = map[string]bool{ModeServer: true, ModeSync: true, ModeFull: true}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Refreshes reports whether the mode reads the ledger itself.
func (c *Config) Refreshes() bool {
	m := strings.ToLower(c.Mode)
	return m == ModeSync || m == ModeFull
}

// Serves reports whether the mode runs the HTTP API.
func (c *Config) Serves() bool {
	m := strings.ToLower(c.Mode)
	return m == ModeServer || m == ModeFull
}

// Validate returns one error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: server, sync, full)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.Refreshes() {
		if c.Chain.RPCURL == "" {
			add("chain: rpc_url must not be empty")
		}
		if !common.IsHexAddress(c.Chain.PoolAddress) {
			add("chain: pool_address %q is not a hex address", c.Chain.PoolAddress)
		}
		if c.Sync.Interval.Duration <= 0 {
			add("sync: interval must be positive")
		}
		if c.Sync.MatchWindow.Duration <= 0 {
			add("sync: match_window must be positive")
		}
	}

	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			add("supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			add("supabase: port must be 1-65535, got %d", c.Supabase.Port)
		}
		if c.Supabase.Database == "" {
			add("supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		add("supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 || c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		add("supabase: pool_min_conns must be between 0 and pool_max_conns")
	}

	if c.Redis.Addr == "" {
		add("redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		add("redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty when enabled")
		}
		if c.S3.ArchiveInterval.Duration <= 0 {
			add("s3: archive_interval must be positive")
		}
	}

	if c.Serves() {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			add("server: rate_window must be positive when rate_limit is set")
		}
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
