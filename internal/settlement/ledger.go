package settlement

import (
	"context"
	"fmt"
	"sync"
)

// Ledger is an in-memory Settler keeping per-asset account balances.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]map[string]int64 // asset -> account -> balance
	history  []Transfer
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]map[string]int64)}
}

var _ Settler = (*Ledger)(nil)

// Credit adds amount of asset to account.
func (l *Ledger) Credit(asset, account string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, ok := l.balances[asset]
	if !ok {
		accounts = make(map[string]int64)
		l.balances[asset] = accounts
	}
	accounts[account] += amount
}

// Balance returns the balance of account in asset.
func (l *Ledger) Balance(asset, account string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[asset][account]
}

// History returns the applied transfers in order.
func (l *Ledger) History() []Transfer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transfer(nil), l.history...)
}

// Transfer implements Settler.
func (l *Ledger) Transfer(ctx context.Context, t Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := l.balances[t.Asset]
	if accounts[t.From] < t.Amount {
		return fmt.Errorf("%w: %s has %d %s, needs %d", ErrInsufficientFunds, t.From, accounts[t.From], t.Asset, t.Amount)
	}

	accounts[t.From] -= t.Amount
	accounts[t.To] += t.Amount
	l.history = append(l.history, t)
	return nil
}
