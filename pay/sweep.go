package pay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"app/lib"
)

// SweepItem is the per-session outcome of a sweep pass.
type SweepItem struct {
	SessionID string      `json:"sessionId"`
	Address   string      `json:"address"`
	Moved     *lib.BigInt `json:"moved,omitempty"`
	TxRef     string      `json:"txRef,omitempty"`
	Skipped   bool        `json:"skipped"`
	Error     string      `json:"error,omitempty"`
}

// SweepOutcome aggregates a batch sweep. Failed items don't abort the batch,
// they are counted and the remaining addresses still get attempted.
type SweepOutcome struct {
	Attempted int          `json:"attempted"`
	Succeeded int          `json:"succeeded"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Moved     *lib.BigInt  `json:"moved"`
	Items     []*SweepItem `json:"items"`
}

// SweepOne moves a paid session's ephemeral balance to the operator address,
// leaving the gas reserve behind. Concurrent sweeps of the same address
// collapse into a skip through the in-flight marker, the only lock held
// around the ledger calls.
func (e *Engine) SweepOne(ctx context.Context, id string) (*SweepItem, error) {
	if !lib.HexAddressRegexp.MatchString(e.cfg.OperatorAddress) || e.cfg.OperatorAddress == lib.ADDRESS_ZERO {
		return nil, ErrNoOperator
	}
	s, err := e.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrUnknownSession
	}
	item := &SweepItem{SessionID: s.ID, Address: s.PayAddress}

	if _, busy := e.sweeping.LoadOrStore(s.PayAddress, true); busy {
		item.Skipped = true
		item.Error = "sweep already in flight"
		return item, nil
	}
	defer e.sweeping.Delete(s.PayAddress)

	balance, err := e.ledger.Balance(ctx, s.PayAddress)
	if err != nil {
		item.Error = err.Error()
		return item, err
	}
	threshold := e.cfg.GasReserve.Add(e.cfg.MinSweep)
	if !balance.Gte(threshold) {
		item.Skipped = true
		lib.LogInfo("sweep skipped, balance below threshold", lib.J{
			"sessionId": s.ID,
			"address":   s.PayAddress,
			"balance":   balance.String(),
			"threshold": threshold.String(),
		})
		return item, nil
	}

	key, err := e.issuer.DeriveKey(s.ID, s.PaySalt)
	if err != nil {
		e.alert("sweep derivation failure", fmt.Sprintf(
			"session %s address %s holds %s but its key can not be re-derived: %s",
			s.ID, s.PayAddress, balance.String(), err.Error()))
		item.Error = err.Error()
		return item, err
	}
	derived := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if !strings.EqualFold(derived, s.PayAddress) {
		err := fmt.Errorf("pay: derived address %s does not match stored %s", derived, s.PayAddress)
		e.alert("sweep address mismatch", fmt.Sprintf(
			"session %s: stored address %s, derived %s, stranded balance %s",
			s.ID, s.PayAddress, derived, balance.String()))
		item.Error = err.Error()
		return item, err
	}

	amount := balance.Sub(e.cfg.GasReserve)
	ref, err := e.ledger.Transfer(ctx, key, e.cfg.OperatorAddress, amount)
	if err != nil {
		item.Error = err.Error()
		return item, err
	}
	item.TxRef = ref
	confirmed, err := e.ledger.Confirm(ctx, ref, e.cfg.ConfirmTimeout)
	if err != nil {
		item.Error = err.Error()
		return item, err
	}
	if !confirmed {
		err := fmt.Errorf("pay: sweep transfer %s reverted", ref)
		item.Error = err.Error()
		return item, err
	}
	item.Moved = amount
	lib.LogInfo("sweep complete", lib.J{
		"sessionId": s.ID,
		"address":   s.PayAddress,
		"moved":     amount.String(),
		"txRef":     ref,
	})
	return item, nil
}

// SweepAll walks every paid session sequentially, oldest payment first, with
// a delay between transfers so the batch never bursts the RPC provider. One
// failing address doesn't stop the rest; a cancelled context does.
func (e *Engine) SweepAll(ctx context.Context) (*SweepOutcome, error) {
	if !lib.HexAddressRegexp.MatchString(e.cfg.OperatorAddress) || e.cfg.OperatorAddress == lib.ADDRESS_ZERO {
		return nil, ErrNoOperator
	}
	sessions, err := e.repo.Paid()
	if err != nil {
		return nil, err
	}
	outcome := &SweepOutcome{Moved: lib.ZERO}
	for i, s := range sessions {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		if i > 0 {
			time.Sleep(e.cfg.SweepDelay)
		}
		outcome.Attempted++
		item, err := e.SweepOne(ctx, s.ID)
		if item == nil {
			item = &SweepItem{SessionID: s.ID, Address: s.PayAddress, Error: err.Error()}
		}
		outcome.Items = append(outcome.Items, item)
		switch {
		case item.Error != "" && !item.Skipped:
			outcome.Failed++
		case item.Skipped:
			outcome.Skipped++
		default:
			outcome.Succeeded++
			outcome.Moved = outcome.Moved.Add(item.Moved)
		}
	}
	lib.LogInfo("sweep batch finished", lib.J{
		"attempted": outcome.Attempted,
		"succeeded": outcome.Succeeded,
		"skipped":   outcome.Skipped,
		"failed":    outcome.Failed,
		"moved":     outcome.Moved.String(),
	})
	return outcome, nil
}
