package pay

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app/lib"
	"app/models"
)

func paymentTx(s *models.Session, amount *lib.BigInt, age time.Duration) *lib.Transaction {
	return &lib.Transaction{
		Ref:    "0xtx" + lib.NewID(),
		From:   "0x00000000000000000000000000000000000000bb",
		To:     s.PayAddress,
		Amount: amount,
		Time:   time.Now().UTC().Add(-age),
		Memo:   s.PayRef,
	}
}

func TestVerifyPaymentAcceptsExactPrice(t *testing.T) {
	engine, _, ledger := newTestEngine()
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.transactions[s.PayAddress] = []*lib.Transaction{paymentTx(s, engine.Config().Price, time.Minute)}

	result, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.False(t, result.AlreadyPaid)
	assert.True(t, result.Attributed)

	d, err := engine.CheckAccess(s.ID)
	require.NoError(t, err)
	assert.Equal(t, ReasonPaidActive, d.Reason)
}

func TestVerifyPaymentToleranceBoundary(t *testing.T) {
	engine, _, ledger := newTestEngine()
	floor := engine.Config().PriceFloor()

	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.transactions[s.PayAddress] = []*lib.Transaction{paymentTx(s, floor, time.Minute)}
	result, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, result.Verified, "exact floor must be accepted")

	s2, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.transactions[s2.PayAddress] = []*lib.Transaction{paymentTx(s2, floor.Sub(lib.Bn(1, 0)), time.Minute)}
	result, err = engine.VerifyPayment(context.Background(), s2.ID)
	require.NoError(t, err)
	assert.False(t, result.Verified, "one wei under the floor must be rejected")
}

func TestVerifyPaymentReplayWindow(t *testing.T) {
	engine, _, ledger := newTestEngine()
	window := engine.Config().ReplayWindow

	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.transactions[s.PayAddress] = []*lib.Transaction{paymentTx(s, engine.Config().Price, window-time.Minute)}
	result, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, result.Verified, "a payment just inside the window is fresh")

	s2, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.transactions[s2.PayAddress] = []*lib.Transaction{paymentTx(s2, engine.Config().Price, window+time.Minute)}
	result, err = engine.VerifyPayment(context.Background(), s2.ID)
	require.NoError(t, err)
	assert.False(t, result.Verified, "a payment older than the window is a replay")
}

// The edge case needs a fixed clock: a transfer timestamped exactly at the
// cutoff is accepted, one second older is not.
func TestEligibleReplayEdge(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	floor := lib.Bn(95, 13)
	tx := &lib.Transaction{Ref: "0xedge", Amount: floor, Time: cutoff}
	assert.True(t, eligible(sql.NullString{}, "", tx, floor, cutoff))
	tx.Time = cutoff.Add(-time.Second)
	assert.False(t, eligible(sql.NullString{}, "", tx, floor, cutoff))
}

func TestVerifyPaymentRejectsFailedAndForeignMemo(t *testing.T) {
	engine, _, ledger := newTestEngine()
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)

	failed := paymentTx(s, engine.Config().Price, time.Minute)
	failed.Failed = true
	foreign := paymentTx(s, engine.Config().Price, time.Minute)
	foreign.Memo = "someone-elses-reference"
	ledger.transactions[s.PayAddress] = []*lib.Transaction{failed, foreign}

	result, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, result.Verified)
}

func TestVerifyPaymentAcceptsMemolessTransfer(t *testing.T) {
	engine, _, ledger := newTestEngine()
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	tx := paymentTx(s, engine.Config().Price, time.Minute)
	tx.Memo = ""
	ledger.transactions[s.PayAddress] = []*lib.Transaction{tx}

	result, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, result.Verified, "plain wallet transfers carry no memo and must still count")
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	engine, repo, ledger := newTestEngine()
	paidHooks := 0
	engine.OnPaid = func(string) { paidHooks++ }
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.transactions[s.PayAddress] = []*lib.Transaction{paymentTx(s, engine.Config().Price, time.Minute)}

	first, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	require.True(t, first.Verified)
	paid, err := repo.Get(s.ID)
	require.NoError(t, err)
	expiry := paid.PaidExpires.Time

	second, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, second.Verified)
	assert.True(t, second.AlreadyPaid)

	paid, err = repo.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, expiry, paid.PaidExpires.Time, "re-verification must not extend access")
	assert.Equal(t, first.TxRef, paid.PayTx.String)
	assert.Equal(t, 1, paidHooks, "OnPaid fires only on the first confirmation")
}

func TestCheckAccessRaceKeepsConfirmedPayment(t *testing.T) {
	// Activity touches are field-level updates; a CheckAccess racing a
	// VerifyPayment must never write back a stale unpaid row over the
	// just-confirmed payment.
	for i := 0; i < 25; i++ {
		engine, repo, ledger := newTestEngine()
		s, _, err := engine.GetOrCreate("", "")
		require.NoError(t, err)
		ledger.transactions[s.PayAddress] = []*lib.Transaction{paymentTx(s, engine.Config().Price, time.Minute)}

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = engine.CheckAccess(s.ID)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.VerifyPayment(context.Background(), s.ID)
		}()
		wg.Wait()

		got, err := repo.Get(s.ID)
		require.NoError(t, err)
		require.True(t, got.Paid, "confirmed payment lost to a concurrent access check")
		require.True(t, got.PayTx.Valid)
		require.True(t, got.PaidExpires.Valid)
	}
}

func TestVerifyPaymentConcurrentSingleGrant(t *testing.T) {
	engine, repo, ledger := newTestEngine()
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.transactions[s.PayAddress] = []*lib.Transaction{paymentTx(s, engine.Config().Price, time.Minute)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.VerifyPayment(context.Background(), s.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	paid, err := repo.Get(s.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.True(t, paid.PaidExpires.Time.Before(time.Now().UTC().Add(engine.Config().PaidDuration+time.Minute)),
		"concurrent verifications must not stack paid time")
}

func TestVerifyPaymentLedgerUnavailable(t *testing.T) {
	engine, _, ledger := newTestEngine()
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.err = lib.ErrLedgerUnavailable

	_, err = engine.VerifyPayment(context.Background(), s.ID)
	assert.ErrorIs(t, err, lib.ErrLedgerUnavailable, "a degraded ledger is not the same as no payment")
}

func TestVerifyPaymentBalanceFallback(t *testing.T) {
	engine, _, ledger := newTestEngine()
	engine.Config().FallbackBalance = true
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	ledger.err = lib.ErrLedgerUnavailable
	ledger.balances[s.PayAddress] = engine.Config().Price

	result, err := engine.VerifyPayment(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.False(t, result.Attributed, "fallback acceptance can't name a sender")
}

func TestVerifyPaymentUnknownSession(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, err := engine.VerifyPayment(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrUnknownSession)
}
