// Package settlement moves value between parties after a trade executes.
package settlement

import (
	"context"
	"errors"
)

// Settlement errors
var (
	ErrInvalidTransfer   = errors.New("invalid transfer")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrClosed            = errors.New("settler closed")
)

// Transfer moves Amount units of Asset from one account to another.
type Transfer struct {
	Asset  string `json:"asset"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Validate checks that the transfer is well formed.
func (t Transfer) Validate() error {
	switch {
	case t.Asset == "":
		return errors.Join(ErrInvalidTransfer, errors.New("asset is empty"))
	case t.From == "" || t.To == "":
		return errors.Join(ErrInvalidTransfer, errors.New("account is empty"))
	case t.Amount <= 0:
		return errors.Join(ErrInvalidTransfer, errors.New("amount must be positive"))
	}
	return nil
}

// Settler executes transfers. Failures are reported to the caller, which
// decides whether to retry; nothing is rolled back on the vault side.
type Settler interface {
	Transfer(ctx context.Context, t Transfer) error
}
