package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	VaultID          string
	Store            string
	StateDir         string
	PGDSN            string
	FeeRate          uint32
	RejectZeroShares bool
	Decimals         int32
	Journal          string
	Transfers        string
	MetricsFile      string
	RPCURL           string
	Holder           string
	MaxRetries       int
	RetryBackoff     time.Duration
	LogLevel         string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("vault-id", "default")
	v.SetDefault("store", StoreFile)
	v.SetDefault("state-dir", "./data/vaults")
	v.SetDefault("fee-rate", 30)
	v.SetDefault("reject-zero-shares", false)
	v.SetDefault("decimals", 7)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	feeRate := v.GetInt64("fee-rate")
	if feeRate < 0 || feeRate > 10000 {
		return Config{}, fmt.Errorf("fee-rate must be within 0..10000, got %d", feeRate)
	}
	decimals := v.GetInt("decimals")
	if decimals < 0 || decimals > 38 {
		return Config{}, fmt.Errorf("decimals must be within 0..38, got %d", decimals)
	}

	cfg := Config{
		VaultID:          strings.TrimSpace(v.GetString("vault-id")),
		Store:            strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		StateDir:         v.GetString("state-dir"),
		PGDSN:            v.GetString("pg-dsn"),
		FeeRate:          uint32(feeRate),
		RejectZeroShares: v.GetBool("reject-zero-shares"),
		Decimals:         int32(decimals),
		Journal:          v.GetString("journal"),
		Transfers:        v.GetString("transfers"),
		MetricsFile:      v.GetString("metrics-file"),
		RPCURL:           v.GetString("rpc"),
		Holder:           strings.TrimSpace(v.GetString("holder")),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		LogLevel:         v.GetString("log-level"),
	}

	switch cfg.Store {
	case StoreMemory, StoreFile, StorePostgres:
	default:
		return Config{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.VaultID == "" {
		return Config{}, fmt.Errorf("vault-id is required")
	}
	if cfg.Journal == "" {
		cfg.Journal = filepath.Join(cfg.StateDir, cfg.VaultID+".events.jsonl")
	}
	if cfg.Transfers == "" {
		cfg.Transfers = filepath.Join(cfg.StateDir, cfg.VaultID+".transfers.jsonl")
	}

	return cfg, nil
}
