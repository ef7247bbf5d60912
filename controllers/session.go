package controllers

import (
	"errors"

	"app/lib"
	"app/models"
	"app/pay"
)

// Sessions serves the anonymous session lifecycle: creation, payment
// instructions and payment polling.
type Sessions struct {
	Engine *pay.Engine
}

// Create resolves the caller's session, minting a new one when the presented
// id is missing, unknown or expired. The id travels back both as a cookie and
// in the body so native clients without a cookie jar still work.
func (ct *Sessions) Create(c *lib.Ctx) {
	existing := c.Param("sessionId", c.GetCookie(lib.SessionCookieName))
	s, isNew, err := ct.Engine.GetOrCreate(existing, c.Fingerprint())
	lib.Check(err)
	c.SetCookie(lib.SessionCookieName, s.ID)
	decision, err := ct.Engine.CheckAccess(s.ID)
	lib.Check(err)
	c.JSON(200, lib.J{
		"sessionId": s.ID,
		"isNew":     isNew,
		"access":    decision,
	})
}

// PaymentInstructions returns everything a client needs to pay for the
// current session: the one-time receive address, the price and the payment
// reference to carry as calldata.
func (ct *Sessions) PaymentInstructions(c *lib.Ctx) {
	s := sessionFor(c, ct.Engine)
	if s == nil {
		return
	}
	cfg := ct.Engine.Config()
	c.JSON(200, lib.J{
		"address":      s.PayAddress,
		"amountWei":    cfg.Price,
		"minimumWei":   cfg.PriceFloor(),
		"reference":    s.PayRef,
		"paidDuration": cfg.PaidDuration.String(),
		"expires":      s.Expires,
	})
}

// CheckPayment polls the ledger for the session's payment. A degraded ledger
// is a 503 so clients keep polling instead of treating it as "not paid".
func (ct *Sessions) CheckPayment(c *lib.Ctx) {
	s := sessionFor(c, ct.Engine)
	if s == nil {
		return
	}
	var result *pay.VerifyResult
	var err error
	c.TraceSpanFn("pay.verify", lib.J{"sessionId": s.ID}, func() {
		result, err = ct.Engine.VerifyPayment(c.Req.Context(), s.ID)
	})
	if errors.Is(err, lib.ErrLedgerUnavailable) {
		c.JSON(503, lib.J{"error": "ledger unavailable", "retryable": true})
		return
	}
	lib.Check(err)
	decision, err := ct.Engine.CheckAccess(s.ID)
	lib.Check(err)
	c.JSON(200, lib.J{
		"result": result,
		"access": decision,
	})
}

// PaymentReceipt returns the ledger transaction behind the session's
// recorded payment, for users who want proof of what was charged.
func (ct *Sessions) PaymentReceipt(c *lib.Ctx) {
	s := sessionFor(c, ct.Engine)
	if s == nil {
		return
	}
	tx, err := ct.Engine.PaymentReceipt(c.Req.Context(), s.ID)
	if errors.Is(err, lib.ErrLedgerUnavailable) {
		c.JSON(503, lib.J{"error": "ledger unavailable", "retryable": true})
		return
	}
	lib.Check(err)
	if tx == nil {
		c.JSON(404, lib.J{"error": "no recorded payment transaction"})
		return
	}
	c.JSON(200, lib.J{"transaction": tx})
}

// Status reports the current access decision without touching the ledger.
func (ct *Sessions) Status(c *lib.Ctx) {
	s := sessionFor(c, ct.Engine)
	if s == nil {
		return
	}
	decision, err := ct.Engine.CheckAccess(s.ID)
	lib.Check(err)
	c.JSON(200, lib.J{"sessionId": s.ID, "access": decision})
}

// sessionFor resolves the request's session or sends the 401 itself and
// returns nil.
func sessionFor(c *lib.Ctx, engine *pay.Engine) *models.Session {
	id := c.Param("sessionId", c.GetCookie(lib.SessionCookieName))
	if !lib.SessionIDRegexp.MatchString(id) {
		c.JSON(401, lib.J{"error": "no session", "reason": pay.ReasonUnknownSession})
		return nil
	}
	s, err := engine.Get(id)
	lib.Check(err)
	if s == nil {
		c.JSON(401, lib.J{"error": "unknown session", "reason": pay.ReasonUnknownSession})
		return nil
	}
	return s
}
