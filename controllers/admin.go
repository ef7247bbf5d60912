package controllers

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"app/lib"
	"app/pay"
)

// Admin exposes the operator surface: stats, manual sweeps. Every endpoint
// except SignIn expects a bearer token minted by SignIn.
type Admin struct {
	Engine *pay.Engine
}

func (ct *Admin) SignIn(c *lib.Ctx) {
	hash := lib.Env("ADMIN_PASSWORD_HASH", "")
	if hash == "" {
		c.JSON(503, lib.J{"error": "admin access not configured"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(c.Param("password", ""))); err != nil {
		c.JSON(401, lib.J{"error": "wrong password"})
		return
	}
	token := lib.CreateToken("admin", lib.Env("SECRET", ""), 12*60)
	c.JSON(200, lib.J{"token": token})
}

// Authorize screens admin requests, sending the 401 itself on failure.
func (ct *Admin) Authorize(c *lib.Ctx) bool {
	value, ok := lib.ValidateToken(c.BearerToken(), lib.Env("SECRET", ""))
	if !ok || value != "admin" {
		c.JSON(401, lib.J{"error": "unauthorized"})
		return false
	}
	return true
}

func (ct *Admin) Stats(c *lib.Ctx) {
	if !ct.Authorize(c) {
		return
	}
	stats := &pay.Stats{}
	c.Cache.Try("admin-stats", stats, 30*time.Second, func() interface{} {
		s, err := ct.Engine.Stats()
		lib.Check(err)
		return s
	})
	operatorBalance := lib.ZERO
	if c.Server.Ledger != nil {
		b, err := c.Server.Ledger.Balance(c.Req.Context(), ct.Engine.Config().OperatorAddress)
		if err != nil {
			lib.LogWarning("operator balance unavailable", lib.J{"error": err.Error()})
		} else {
			operatorBalance = b
		}
	}
	c.JSON(200, lib.J{
		"stats":           stats,
		"operatorBalance": operatorBalance,
	})
}

// Sweep runs a manual sweep, of one session when sessionId is given,
// otherwise of every paid session. Batch sweeps can take minutes so they run
// detached from the request.
func (ct *Admin) Sweep(c *lib.Ctx) {
	if !ct.Authorize(c) {
		return
	}
	if id := c.Param("sessionId", ""); id != "" {
		if errs := lib.Validate(c.Params(), lib.ValidateRegexp("sessionId", lib.SessionIDRegexp)); len(errs) > 0 {
			c.JSON(400, lib.J{"errors": errs})
			return
		}
		item, err := ct.Engine.SweepOne(c.Req.Context(), id)
		if err == pay.ErrUnknownSession {
			c.JSON(404, lib.J{"error": "unknown session"})
			return
		}
		lib.Check(err)
		c.JSON(200, lib.J{"item": item})
		return
	}
	c.Queue.Enqueue("sweep", lib.J{}, lib.JobPriorityHigh)
	c.JSON(202, lib.J{"started": true})
}

// SweepNow is the synchronous batch variant used by operators who want the
// outcome in the response.
func (ct *Admin) SweepNow(c *lib.Ctx) {
	if !ct.Authorize(c) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	outcome, err := ct.Engine.SweepAll(ctx)
	lib.Check(err)
	c.JSON(200, lib.J{"outcome": outcome})
}
