// Package main runs the treasury vault service: the HTTP API over the vault
// state machine, backed by PostgreSQL (or memory), with an optional
// ClickHouse audit journal and websocket settlement gateway. In memory mode
// trades settle on an in-memory ledger unless a gateway is configured.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"treasury-vault/internal/api"
	"treasury-vault/internal/auth"
	"treasury-vault/internal/config"
	"treasury-vault/internal/settlement"
	"treasury-vault/internal/storage"
	chstore "treasury-vault/internal/storage/clickhouse"
	"treasury-vault/internal/storage/memory"
	"treasury-vault/internal/storage/migrations"
	pgstore "treasury-vault/internal/storage/postgres"
	"treasury-vault/internal/vault"
)

func main() {
	logger := log.New(os.Stdout, "[vaultd] ", log.LstdFlags|log.Lshortfile)

	if err := config.LoadEnvFile(".env"); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backends, err := createBackends(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create backends: %v", err)
	}
	defer backends.close()

	v, err := vault.New(vault.Options{
		Store:              backends.store,
		Oracle:             auth.NewSignatureOracle(),
		Audit:              backends.audit,
		Settler:            backends.settler,
		VaultAccount:       cfg.VaultAccount,
		SettlementCurrency: cfg.SettlementCurrency,
		Logger:             log.New(os.Stdout, "[vault] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create vault: %v", err)
	}

	srv, err := api.NewServer(api.Options{
		Vault:        v,
		ServeMetrics: true,
		Logger:       log.New(os.Stdout, "[api] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create API server: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           http.TimeoutHandler(srv.Handler(), cfg.RequestTimeout, `{"error":"request timed out","code":"internal"}`),
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	// Channel to signal completion
	done := make(chan error, 1)
	go func() {
		logger.Printf("Listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			done <- err
			return
		}
		done <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-done:
		if err != nil {
			logger.Printf("HTTP server error: %v", err)
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer stop()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Graceful shutdown failed: %v", err)
	}
	cancel()
	logger.Println("Shutdown complete")
}

// backends holds the storage, audit and settlement implementations.
type backends struct {
	store   storage.Store
	audit   storage.AuditSink
	settler settlement.Settler
	closers []func() error
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

func createBackends(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backends, error) {
	b := &backends{}

	if cfg.UseMemory {
		logger.Println("Using in-memory storage")
		b.store = memory.NewStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			b.close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		b.store = pgstore.NewStore(pool, 0)
	}

	switch {
	case cfg.ClickHouseDSN != "":
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		b.closers = append(b.closers, conn.Close)
		b.audit = chstore.NewAuditSink(conn)
	case cfg.UseMemory:
		b.audit = memory.NewAuditSink()
	default:
		logger.Println("No --clickhouse-dsn, audit journal disabled")
	}

	if cfg.SettlementWS != "" {
		wsConfig := settlement.DefaultWSConfig()
		wsConfig.RequestTimeout = cfg.RequestTimeout
		client, err := settlement.NewWSClient(ctx, cfg.SettlementWS, &wsConfig)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect settlement gateway: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.settler = client
		logger.Printf("Settling trades from %s via %s", cfg.VaultAccount, cfg.SettlementWS)
	} else if cfg.UseMemory {
		ledger := settlement.NewLedger()
		if cfg.LedgerFunds > 0 {
			ledger.Credit(cfg.SettlementCurrency, cfg.VaultAccount, cfg.LedgerFunds)
		}
		b.settler = ledger
		logger.Printf("Settling trades on the in-memory ledger (%s holds %d %s)",
			cfg.VaultAccount, cfg.LedgerFunds, cfg.SettlementCurrency)
	}

	return b, nil
}
