package pay

import (
	"sort"
	"sync"
	"time"

	"app/lib"
	"app/models"
)

// Repo is the key-value capability behind the session store. Get returns
// (nil, nil) for an unknown id.
type Repo interface {
	Get(id string) (*models.Session, error)
	Put(s *models.Session) error
	// Touch bumps activity timestamps only. It must not write any other
	// field: full-row writes here would race payment confirmation.
	Touch(id string, now time.Time) error
	Delete(id string) error
	Paid() ([]*models.Session, error)
	ReapExpired(before time.Time) (int64, error)
	Stats(now time.Time) (*Stats, error)
}

type Stats struct {
	TotalSessions  int64       `json:"totalUsers"`
	TrialSessions  int64       `json:"trialUsers"`
	PaidSessions   int64       `json:"paidUsers"`
	TotalCollected *lib.BigInt `json:"totalCollected"`
}

// GetOrCreate resolves an existing valid session or mints a new one: fresh
// high entropy id, trial window, absolute lifetime, and an ephemeral receive
// address issued atomically with the session row.
func (e *Engine) GetOrCreate(existingID, fingerprint string) (*models.Session, bool, error) {
	now := time.Now().UTC()
	if existingID != "" {
		s, err := e.repo.Get(existingID)
		if err != nil {
			return nil, false, err
		}
		if s != nil && !s.Dead(now) {
			e.checkFingerprint(s, fingerprint)
			e.touch(s, now)
			return s, false, nil
		}
	}

	id := lib.NewSecretID()
	address, salt, err := e.issuer.Issue(id)
	if err != nil {
		return nil, false, err
	}
	s := &models.Session{
		ID:           id,
		Fingerprint:  fingerprint,
		Created:      now,
		Updated:      now,
		LastSeen:     now,
		Expires:      now.Add(e.cfg.SessionLifetime),
		TrialExpires: now.Add(e.cfg.TrialDuration),
		PayAddress:   address,
		PaySalt:      salt,
		PayRef:       lib.NewRandomID(),
	}
	if err := e.repo.Put(s); err != nil {
		return nil, false, err
	}
	lib.LogInfo("session created", lib.J{"sessionId": s.ID, "address": s.PayAddress})
	return s, true, nil
}

// Validate reports whether a session id can still be used. Fingerprint
// mismatch only fails validation in strict mode, by default it is advisory
// (proxies and carrier IP rotation produce false mismatches).
func (e *Engine) Validate(id, fingerprint string) bool {
	if id == "" {
		return false
	}
	s, err := e.repo.Get(id)
	if err != nil || s == nil {
		return false
	}
	now := time.Now().UTC()
	if s.Dead(now) {
		return false
	}
	if !e.checkFingerprint(s, fingerprint) && e.cfg.FingerprintStrict {
		return false
	}
	e.touch(s, now)
	return true
}

// Get returns the session for an id, nil when unknown.
func (e *Engine) Get(id string) (*models.Session, error) {
	return e.repo.Get(id)
}

// FingerprintMatches reports whether the presented fingerprint matches the
// stored one. Unknown sessions never match.
func (e *Engine) FingerprintMatches(id, fingerprint string) bool {
	s, err := e.repo.Get(id)
	if err != nil || s == nil {
		return false
	}
	return e.checkFingerprint(s, fingerprint)
}

func (e *Engine) checkFingerprint(s *models.Session, fingerprint string) bool {
	if s.Fingerprint == "" || fingerprint == "" || s.Fingerprint == fingerprint {
		return true
	}
	lib.LogWarning("session fingerprint mismatch", lib.J{
		"sessionId": s.ID,
		"stored":    s.Fingerprint,
		"seen":      fingerprint,
	})
	return false
}

func (e *Engine) touch(s *models.Session, now time.Time) {
	s.LastSeen = now
	s.Updated = now
	if err := e.repo.Touch(s.ID, now); err != nil {
		lib.LogError("session touch failed", lib.J{"sessionId": s.ID, "error": err.Error()})
	}
}

// Reap deletes sessions past their absolute expiry. Runs on a schedule, not
// per request.
func (e *Engine) Reap(now time.Time) (int64, error) {
	n, err := e.repo.ReapExpired(now)
	if err == nil && n > 0 {
		lib.LogInfo("sessions reaped", lib.J{"count": n})
	}
	return n, err
}

func (e *Engine) Stats() (*Stats, error) {
	return e.repo.Stats(time.Now().UTC())
}

// DBRepo stores sessions in Postgres through the lib database layer.
type DBRepo struct {
	db *lib.Database
}

func NewDBRepo(db *lib.Database) *DBRepo {
	return &DBRepo{db: db}
}

func (r *DBRepo) Get(id string) (*models.Session, error) {
	s := &models.Session{}
	if err := r.db.FirstWhereErr(s, "id = $1", id); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, nil
	}
	return s, nil
}

func (r *DBRepo) Put(s *models.Session) error {
	return r.db.PutErr(s)
}

func (r *DBRepo) Touch(id string, now time.Time) error {
	return r.db.ExecuteErr(`update sessions set last_seen = $2, updated = $2 where id = $1`, id, now)
}

func (r *DBRepo) Delete(id string) error {
	return r.db.ExecuteErr(`delete from sessions where id = $1`, id)
}

func (r *DBRepo) Paid() ([]*models.Session, error) {
	sessions := []*models.Session{}
	err := r.db.AllWhereErr(&sessions, "paid = true order by pay_received asc")
	return sessions, err
}

func (r *DBRepo) ReapExpired(before time.Time) (int64, error) {
	return r.db.ExecuteCountErr(`delete from sessions where expires < $1`, before)
}

func (r *DBRepo) Stats(now time.Time) (*Stats, error) {
	row := struct {
		Total     int64
		Trial     int64
		Paid      int64
		Collected *lib.BigInt
	}{}
	err := r.db.FirstErr(&row, `select
		count(*) as total,
		count(*) filter (where not paid and trial_expires > $1) as trial,
		count(*) filter (where paid and paid_expires > $1) as paid,
		coalesce(sum(pay_amount::numeric), 0)::text as collected
		from sessions`, now)
	if err != nil {
		return nil, err
	}
	collected := row.Collected
	if collected == nil {
		collected = lib.ZERO
	}
	return &Stats{
		TotalSessions:  row.Total,
		TrialSessions:  row.Trial,
		PaidSessions:   row.Paid,
		TotalCollected: collected,
	}, nil
}

// MemRepo is an in-memory Repo used in tests and one-off jobs.
type MemRepo struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewMemRepo() *MemRepo {
	return &MemRepo{sessions: map[string]*models.Session{}}
}

func (r *MemRepo) Get(id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *MemRepo) Put(s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *MemRepo) Touch(id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastSeen = now
		s.Updated = now
	}
	return nil
}

func (r *MemRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemRepo) Paid() ([]*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := []*models.Session{}
	for _, s := range r.sessions {
		if s.Paid {
			copied := *s
			sessions = append(sessions, &copied)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Created.Before(sessions[j].Created)
	})
	return sessions, nil
}

func (r *MemRepo) ReapExpired(before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.Expires.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *MemRepo) Stats(now time.Time) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &Stats{TotalCollected: lib.ZERO}
	for _, s := range r.sessions {
		stats.TotalSessions++
		if !s.Paid && s.TrialActive(now) {
			stats.TrialSessions++
		}
		if s.PaidActive(now) {
			stats.PaidSessions++
		}
		if s.PayAmount != nil {
			stats.TotalCollected = stats.TotalCollected.Add(s.PayAmount)
		}
	}
	return stats, nil
}
