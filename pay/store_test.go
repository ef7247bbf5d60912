package pay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateNewSession(t *testing.T) {
	engine, _, _ := newTestEngine()
	s, isNew, err := engine.GetOrCreate("", "fp-1")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Len(t, s.ID, 64, "session ids carry 256 bits of entropy")
	assert.NotEmpty(t, s.PayAddress)
	assert.NotEmpty(t, s.PaySalt)
	assert.NotEmpty(t, s.PayRef)
	assert.True(t, s.TrialExpires.After(time.Now().UTC()))
	assert.True(t, s.Expires.After(s.TrialExpires))
}

func TestRepoTouchOnlyBumpsActivity(t *testing.T) {
	engine, repo, _ := newTestEngine()
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	s.Paid = true
	require.NoError(t, repo.Put(s))

	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.Touch(s.ID, later))

	got, err := repo.Get(s.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid, "touch must not write payment fields")
	assert.Equal(t, later, got.LastSeen)
	assert.Equal(t, later, got.Updated)
}

func TestGetOrCreateResumes(t *testing.T) {
	engine, _, _ := newTestEngine()
	s, _, err := engine.GetOrCreate("", "fp-1")
	require.NoError(t, err)

	resumed, isNew, err := engine.GetOrCreate(s.ID, "fp-1")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, s.ID, resumed.ID)
	assert.Equal(t, s.PayAddress, resumed.PayAddress)
}

func TestGetOrCreateReplacesDeadSession(t *testing.T) {
	engine, repo, _ := newTestEngine()
	s, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	s.Expires = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Put(s))

	replaced, isNew, err := engine.GetOrCreate(s.ID, "")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, s.ID, replaced.ID)
	assert.NotEqual(t, s.PayAddress, replaced.PayAddress)
}

func TestGetOrCreateUniqueAddresses(t *testing.T) {
	engine, _, _ := newTestEngine()
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		s, _, err := engine.GetOrCreate("", "")
		require.NoError(t, err)
		assert.False(t, seen[s.PayAddress], "every session gets its own address")
		seen[s.PayAddress] = true
	}
}

func TestValidate(t *testing.T) {
	engine, repo, _ := newTestEngine()
	s, _, err := engine.GetOrCreate("", "fp-1")
	require.NoError(t, err)

	assert.True(t, engine.Validate(s.ID, "fp-1"))
	assert.True(t, engine.Validate(s.ID, "fp-2"), "fingerprint mismatch is advisory by default")
	assert.False(t, engine.Validate("", "fp-1"))
	assert.False(t, engine.Validate("unknown", "fp-1"))

	engine.cfg.FingerprintStrict = true
	assert.False(t, engine.Validate(s.ID, "fp-2"))
	assert.True(t, engine.Validate(s.ID, "fp-1"))

	s.Expires = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Put(s))
	assert.False(t, engine.Validate(s.ID, "fp-1"))
}

func TestFingerprintMatches(t *testing.T) {
	engine, _, _ := newTestEngine()
	s, _, err := engine.GetOrCreate("", "fp-1")
	require.NoError(t, err)

	assert.True(t, engine.FingerprintMatches(s.ID, "fp-1"))
	assert.True(t, engine.FingerprintMatches(s.ID, ""), "absent fingerprints don't mismatch")
	assert.False(t, engine.FingerprintMatches(s.ID, "fp-2"))
	assert.False(t, engine.FingerprintMatches("unknown", "fp-1"))
}

func TestReap(t *testing.T) {
	engine, repo, _ := newTestEngine()
	alive, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	dead, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	dead.Expires = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Put(dead))

	n, err := engine.Reap(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := repo.Get(dead.ID)
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = repo.Get(alive.ID)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestStats(t *testing.T) {
	engine, repo, _ := newTestEngine()
	_, _, err := engine.GetOrCreate("", "")
	require.NoError(t, err)
	paid := paidSession(t, engine, repo)

	stats, err := engine.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.TrialSessions)
	assert.Equal(t, int64(1), stats.PaidSessions)
	assert.True(t, stats.TotalCollected.Eq(paid.PayAmount))
}
