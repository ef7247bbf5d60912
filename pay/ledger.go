package pay

import (
	"context"
	"crypto/ecdsa"
	"time"

	"app/lib"
)

// Ledger is the slice of ledger capability the engine consumes. Implemented
// by lib.ChainClient in production and by a fake in tests.
type Ledger interface {
	Balance(ctx context.Context, address string) (*lib.BigInt, error)
	RecentTransactions(ctx context.Context, address string, limit int) ([]*lib.Transaction, error)
	Transaction(ctx context.Context, ref string) (*lib.Transaction, error)
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, to string, amount *lib.BigInt) (string, error)
	Confirm(ctx context.Context, ref string, timeout time.Duration) (bool, error)
}

var _ Ledger = (*lib.ChainClient)(nil)
