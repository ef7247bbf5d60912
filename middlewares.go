package main

import (
	"app/lib"
	"app/pay"
)

// midAccess guards paid endpoints. It resolves the session id from the
// cookie, the X-Session-Id header or the body, evaluates access and denies
// with the evaluator's reason so clients can route the user to the right
// screen (signup vs paywall).
func midAccess(engine *pay.Engine) lib.HandlerFunc {
	return func(c *lib.Ctx) {
		id := c.GetCookie(lib.SessionCookieName)
		if v := c.Req.Header.Get("X-Session-Id"); v != "" {
			id = v
		}
		if v := c.Param("sessionId", ""); v != "" {
			id = v
		}
		c.Data["sessionId"] = id

		decision, err := engine.CheckAccess(id)
		lib.Check(err)
		if !decision.HasAccess {
			code := 402
			if decision.Reason == pay.ReasonUnknownSession {
				code = 401
			}
			c.JSON(code, lib.J{"error": "access denied", "reason": decision.Reason, "access": decision})
			return
		}
		if c.Toggle("strict-fingerprint") && !engine.FingerprintMatches(id, c.Fingerprint()) {
			c.JSON(401, lib.J{"error": "access denied", "reason": pay.ReasonUnknownSession})
			return
		}
	}
}
