package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"treasury-vault/internal/observability"
	"treasury-vault/internal/storage"
)

// DefaultLockKey is the advisory lock key serializing vault transitions.
const DefaultLockKey int64 = 0x7661756c74 // "vault"

// Store implements storage.Store using PostgreSQL.
// Every Update takes a transaction-scoped advisory lock, so transitions
// from any number of processes sharing the database run one at a time.
type Store struct {
	pool    *Pool
	lockKey int64
}

// NewStore creates a new Store. lockKey 0 selects DefaultLockKey.
func NewStore(pool *Pool, lockKey int64) *Store {
	if lockKey == 0 {
		lockKey = DefaultLockKey
	}
	return &Store{pool: pool, lockKey: lockKey}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Update runs fn inside a serialized read-write transaction.
func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "update", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, s.lockKey); err != nil {
		return fmt.Errorf("acquire vault lock: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// View runs fn inside a read-only repeatable-read transaction.
func (s *Store) View(ctx context.Context, fn func(tx storage.ReadTx) error) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "view", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, readOnly: true}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
