// Package config loads vaultd configuration from flags, environment variables
// and an optional .env file. Flags win over the environment; the .env file
// never overrides variables already set.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the vaultd configuration.
type Config struct {
	ListenAddr string

	PostgresDSN   string
	ClickHouseDSN string // optional audit journal
	UseMemory     bool

	// Settlement
	SettlementWS       string // JSON-RPC websocket gateway; empty disables settlement
	VaultAccount       string
	SettlementCurrency string
	LedgerFunds        int64 // opening vault balance on the in-memory ledger

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LoadEnvFile loads path into the environment without overriding variables
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Parse parses args (without the program name) with environment defaults.
func Parse(name string, args []string) (*Config, error) {
	fset := flag.NewFlagSet(name, flag.ContinueOnError)

	cfg := &Config{}
	fset.StringVar(&cfg.ListenAddr, "listen-addr", envString("VAULT_LISTEN_ADDR", ":8080"), "HTTP API listen address")
	fset.StringVar(&cfg.PostgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fset.StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the audit journal (optional)")
	fset.BoolVar(&cfg.UseMemory, "use-memory", envBool("VAULT_USE_MEMORY", false), "Use in-memory storage instead of PostgreSQL")
	fset.StringVar(&cfg.SettlementWS, "settlement-ws", os.Getenv("SETTLEMENT_WS_ENDPOINT"), "Settlement gateway websocket endpoint (optional)")
	fset.StringVar(&cfg.VaultAccount, "vault-account", os.Getenv("VAULT_ACCOUNT"), "Account holding the vault's assets")
	fset.StringVar(&cfg.SettlementCurrency, "settlement-currency", envString("SETTLEMENT_CURRENCY", "USDC"), "Asset paid out for BUY trades")
	fset.Int64Var(&cfg.LedgerFunds, "ledger-funds", envInt64("VAULT_LEDGER_FUNDS", 0), "Settlement currency credited to --vault-account on the in-memory ledger (--use-memory without --settlement-ws)")
	fset.DurationVar(&cfg.RequestTimeout, "request-timeout", envDuration("VAULT_REQUEST_TIMEOUT", 10*time.Second), "Per-request timeout")
	fset.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", envDuration("VAULT_SHUTDOWN_TIMEOUT", 30*time.Second), "Graceful shutdown timeout")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required combinations.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("--listen-addr is required")
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return errors.New("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if c.SettlementWS != "" && c.VaultAccount == "" {
		return errors.New("--vault-account is required when --settlement-ws is set")
	}
	if c.LedgerFunds < 0 {
		return errors.New("--ledger-funds must not be negative")
	}
	if c.LedgerFunds > 0 && c.VaultAccount == "" {
		return errors.New("--vault-account is required when --ledger-funds is set")
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
