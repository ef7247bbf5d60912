package pay

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"app/lib"
	"app/models"
)

// VerifyResult is the outcome of a payment check. Attributed is false when
// the reduced-assurance balance fallback accepted the payment, meaning we
// can't tie it to a specific sender transaction.
type VerifyResult struct {
	Verified    bool        `json:"verified"`
	AlreadyPaid bool        `json:"alreadyPaid"`
	Amount      *lib.BigInt `json:"amount,omitempty"`
	TxRef       string      `json:"txRef,omitempty"`
	Attributed  bool        `json:"attributed"`
}

// VerifyPayment checks the ledger for a qualifying payment to the session's
// receive address and, on the first match, atomically records it and extends
// paid access. Safe to poll: an already-paid session short-circuits without
// touching the ledger or re-granting anything.
//
// Ledger errors surface as ErrLedgerUnavailable so callers can tell
// "couldn't check" from "no payment yet".
func (e *Engine) VerifyPayment(ctx context.Context, id string) (*VerifyResult, error) {
	now := time.Now().UTC()
	s, err := e.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Dead(now) {
		return nil, ErrUnknownSession
	}
	if s.PaidActive(now) {
		return &VerifyResult{
			Verified:    true,
			AlreadyPaid: true,
			Amount:      s.PayAmount,
			TxRef:       s.PayTx.String,
			Attributed:  true,
		}, nil
	}

	// Ledger I/O happens outside the session lock.
	txs, err := e.ledger.RecentTransactions(ctx, s.PayAddress, e.cfg.RecentTxLimit)
	if err != nil {
		if e.cfg.FallbackBalance {
			return e.verifyByBalance(ctx, s, now)
		}
		return nil, err
	}

	floor := e.cfg.PriceFloor()
	cutoff := now.Add(-e.cfg.ReplayWindow)
	for _, tx := range txs {
		if !eligible(s.PayTx, s.PayRef, tx, floor, cutoff) {
			continue
		}
		return e.confirmPayment(id, tx, true)
	}
	return &VerifyResult{}, nil
}

// eligible applies the candidate filters: no execution error, not the
// already-recorded transaction, inside the replay window (the edge itself is
// accepted), correlator match when both sides carry one, and a balance delta
// at or above the tolerance floor.
func eligible(recorded sql.NullString, correlator string, tx *lib.Transaction, floor *lib.BigInt, cutoff time.Time) bool {
	if tx.Failed {
		return false
	}
	if recorded.Valid && recorded.String == tx.Ref {
		return false
	}
	if tx.Time.Before(cutoff) {
		return false
	}
	if tx.Memo != "" && correlator != "" && tx.Memo != correlator {
		return false
	}
	return tx.Amount != nil && tx.Amount.Gte(floor)
}

// confirmPayment records a matched payment under the per-session lock. The
// session is re-read inside the lock so a concurrent confirm of the same
// transaction collapses into an idempotent no-op.
func (e *Engine) confirmPayment(id string, tx *lib.Transaction, attributed bool) (*VerifyResult, error) {
	mu := e.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	s, err := e.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrUnknownSession
	}
	if s.PayTx.Valid && s.PayTx.String == tx.Ref {
		return &VerifyResult{
			Verified:    true,
			AlreadyPaid: true,
			Amount:      s.PayAmount,
			TxRef:       tx.Ref,
			Attributed:  attributed,
		}, nil
	}

	now := time.Now().UTC()
	expiry := now.Add(e.cfg.PaidDuration)
	// Paid expiry only ever extends forward.
	if s.PaidExpires.Valid && s.PaidExpires.Time.After(expiry) {
		expiry = s.PaidExpires.Time
	}
	s.Paid = true
	s.PaidExpires = sql.NullTime{Time: expiry, Valid: true}
	s.PayTx = sql.NullString{String: tx.Ref, Valid: true}
	if s.PayAmount == nil {
		s.PayAmount = tx.Amount
	}
	s.PayReceived = sql.NullTime{Time: now, Valid: true}
	s.Updated = now
	if err := e.repo.Put(s); err != nil {
		return nil, err
	}
	lib.LogInfo("payment confirmed", lib.J{
		"sessionId":  s.ID,
		"txRef":      tx.Ref,
		"amount":     tx.Amount.String(),
		"attributed": attributed,
		"paidUntil":  expiry.Format(time.RFC3339),
	})
	if e.OnPaid != nil {
		e.OnPaid(s.ID)
	}
	return &VerifyResult{Verified: true, Amount: tx.Amount, TxRef: tx.Ref, Attributed: attributed}, nil
}

// PaymentReceipt looks up the ledger transaction recorded for a session's
// payment. Balance-fallback confirmations have no underlying transaction and
// return nil.
func (e *Engine) PaymentReceipt(ctx context.Context, id string) (*lib.Transaction, error) {
	s, err := e.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrUnknownSession
	}
	if !s.PayTx.Valid || strings.HasPrefix(s.PayTx.String, "balance:") {
		return nil, nil
	}
	return e.ledger.Transaction(ctx, s.PayTx.String)
}

// verifyByBalance is the reduced-assurance path used only when recent
// transaction queries are degraded and the fallback is explicitly enabled.
// It can't attribute the payment to a sender.
func (e *Engine) verifyByBalance(ctx context.Context, s *models.Session, now time.Time) (*VerifyResult, error) {
	balance, err := e.ledger.Balance(ctx, s.PayAddress)
	if err != nil {
		return nil, err
	}
	if !balance.Gte(e.cfg.PriceFloor()) {
		return &VerifyResult{}, nil
	}
	lib.LogWarning("payment accepted via reduced-assurance balance check", lib.J{
		"sessionId": s.ID,
		"address":   s.PayAddress,
		"balance":   balance.String(),
	})
	tx := &lib.Transaction{Ref: "balance:" + s.PayAddress, Amount: balance, Time: now}
	return e.confirmPayment(s.ID, tx, false)
}
