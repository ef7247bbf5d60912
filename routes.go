package main

import (
	"app/ai"
	"app/controllers"
	"app/lib"
	"app/pay"
)

func setupRoutes(s *lib.Server, engine *pay.Engine, speech ai.Speech, completer ai.Completer) {
	sessions := &controllers.Sessions{Engine: engine}
	chat := &controllers.Chat{Engine: engine, Speech: speech, Completer: completer}
	admin := &controllers.Admin{Engine: engine}
	marketing := &controllers.Marketing{Engine: engine}

	s.Handle("/", marketing.Home)
	s.Handle("/docs/:slug/", marketing.DocsView)

	s.Handle("/api/session/", sessions.Create)
	s.Handle("/api/session/status/", sessions.Status)
	s.Handle("/api/session/pay/", sessions.PaymentInstructions)
	s.Handle("/api/session/pay/check/", sessions.CheckPayment)
	s.Handle("/api/session/pay/receipt/", sessions.PaymentReceipt)
	s.Handle("/api/chat/", midAccess(engine), chat.Converse)

	s.Handle("/admin/signin/", admin.SignIn)
	s.Handle("/admin/stats/", admin.Stats)
	s.Handle("/admin/sweep/", admin.Sweep)
	s.Handle("/admin/sweep/now/", admin.SweepNow)

	s.HandleNotFound(func(c *lib.Ctx) {
		c.Render(404, "other/404", lib.J{})
	})
}

func setupToggles() {
	// Rolled out gradually before flipping FINGERPRINT_STRICT for everyone.
	lib.RegisterToggle(&lib.Toggle{
		Name:        "strict-fingerprint",
		Description: "Reject requests whose fingerprint differs from the one the session was created with",
		Default:     false,
		Rules:       []*lib.ToggleRule{lib.ToggleRulePercent("sessionId", 0)},
	})
}
