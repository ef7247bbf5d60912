package main

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app/lib"
	"app/pay"
)

func testAccessEngine() (*pay.Engine, *pay.MemRepo) {
	repo := pay.NewMemRepo()
	cfg := &pay.Config{
		Secret:          "test-secret",
		KDFIterations:   10,
		SaltLength:      16,
		Price:           lib.Bn(1, 15),
		TolerancePct:    5,
		ReplayWindow:    24 * time.Hour,
		TrialDuration:   3 * time.Minute,
		PaidDuration:    time.Hour,
		SessionLifetime: 24 * time.Hour,
	}
	return pay.New(cfg, repo, nil), repo
}

func accessCtx(id string) (*lib.Ctx, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/chat/", nil)
	if id != "" {
		req.Header.Set("X-Session-Id", id)
	}
	return &lib.Ctx{Req: req, Res: rec, Data: lib.J{}}, rec
}

func TestMidAccessDeniesUnknown(t *testing.T) {
	setupToggles()
	engine, _ := testAccessEngine()
	handler := midAccess(engine)

	c, rec := accessCtx("")
	handler(c)
	require.Equal(t, 401, rec.Code)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, pay.ReasonUnknownSession, body["reason"])
}

func TestMidAccessAllowsTrial(t *testing.T) {
	setupToggles()
	engine, _ := testAccessEngine()
	handler := midAccess(engine)
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)

	c, rec := accessCtx(s.ID)
	handler(c)
	assert.Zero(t, rec.Body.Len(), "granted requests fall through to the handler")
	assert.Equal(t, s.ID, c.Data["sessionId"])
}

func TestMidAccessStrictFingerprint(t *testing.T) {
	setupToggles()
	// Flip the rollout toggle fully on for this test.
	lib.RegisterToggle(&lib.Toggle{
		Name:        "strict-fingerprint",
		Description: "Reject requests whose fingerprint differs from the one the session was created with",
		Default:     true,
	})
	defer setupToggles()

	engine, _ := testAccessEngine()
	handler := midAccess(engine)
	// The fingerprint is derived server-side from IP and user agent; a
	// client can't blank it out by omitting a param.
	s, _, err := engine.GetOrCreate("", "192.0.2.1|agent-a")
	require.NoError(t, err)

	c, rec := accessCtx(s.ID)
	c.Req.Header.Set("User-Agent", "agent-a")
	handler(c)
	assert.Zero(t, rec.Body.Len(), "matching fingerprint passes")

	c2, rec2 := accessCtx(s.ID)
	c2.Req.Header.Set("User-Agent", "agent-b")
	handler(c2)
	require.Equal(t, 401, rec2.Code, "hijacked session is rejected")
}

func TestMidAccessPaywallsExpiredTrial(t *testing.T) {
	setupToggles()
	engine, repo := testAccessEngine()
	handler := midAccess(engine)
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	s.TrialExpires = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Put(s))

	c, rec := accessCtx(s.ID)
	handler(c)
	require.Equal(t, 402, rec.Code)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, pay.ReasonExpired, body["reason"])
}
