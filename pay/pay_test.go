package pay

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"app/lib"
)

func testConfig() *Config {
	return &Config{
		Secret:          "test-secret",
		KDFIterations:   10,
		SaltLength:      16,
		OperatorAddress: "0x00000000000000000000000000000000000000aa",
		Price:           lib.Bn(1, 15),
		TolerancePct:    5,
		ReplayWindow:    24 * time.Hour,
		RecentTxLimit:   15,
		TrialDuration:   3 * time.Minute,
		PaidDuration:    time.Hour,
		SessionLifetime: 24 * time.Hour,
		GasReserve:      lib.Bn(5, 13),
		MinSweep:        lib.Bn(1, 14),
		ConfirmTimeout:  time.Second,
	}
}

// fakeLedger scripts ledger behavior per address.
type fakeLedger struct {
	mu           sync.Mutex
	balances     map[string]*lib.BigInt
	transactions map[string][]*lib.Transaction
	err          error
	balanceErr   error
	transfers    []fakeTransfer
	transferErr  map[string]error
	inflight     map[string]int
	maxInflight  int
}

type fakeTransfer struct {
	From   string
	To     string
	Amount *lib.BigInt
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:     map[string]*lib.BigInt{},
		transactions: map[string][]*lib.Transaction{},
		transferErr:  map[string]error{},
		inflight:     map[string]int{},
	}
}

func (l *fakeLedger) Balance(ctx context.Context, address string) (*lib.BigInt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balanceErr != nil {
		return nil, l.balanceErr
	}
	if b, ok := l.balances[address]; ok {
		return b, nil
	}
	return lib.ZERO, nil
}

func (l *fakeLedger) RecentTransactions(ctx context.Context, address string, limit int) ([]*lib.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.transactions[address], nil
}

func (l *fakeLedger) Transaction(ctx context.Context, ref string) (*lib.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, txs := range l.transactions {
		for _, tx := range txs {
			if tx.Ref == ref {
				return tx, nil
			}
		}
	}
	return nil, errors.New("not found")
}

func (l *fakeLedger) Transfer(ctx context.Context, key *ecdsa.PrivateKey, to string, amount *lib.BigInt) (string, error) {
	from := crypto.PubkeyToAddress(key.PublicKey).Hex()
	l.mu.Lock()
	l.inflight[from]++
	if l.inflight[from] > l.maxInflight {
		l.maxInflight = l.inflight[from]
	}
	l.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight[from]--
	if err := l.transferErr[from]; err != nil {
		return "", err
	}
	l.transfers = append(l.transfers, fakeTransfer{From: from, To: to, Amount: amount})
	return "0xtx" + lib.NewID(), nil
}

func (l *fakeLedger) Confirm(ctx context.Context, ref string, timeout time.Duration) (bool, error) {
	return true, nil
}

func newTestEngine() (*Engine, *MemRepo, *fakeLedger) {
	repo := NewMemRepo()
	ledger := newFakeLedger()
	return New(testConfig(), repo, ledger), repo, ledger
}
