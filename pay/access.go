package pay

import (
	"time"
)

const (
	ReasonUnknownSession = "unknown-session"
	ReasonTrialActive    = "trial-active"
	ReasonPaidActive     = "paid-active"
	ReasonExpired        = "expired"
)

// Decision is the structured result of an access check. Exactly one reason
// holds for any session at any instant.
type Decision struct {
	HasAccess       bool       `json:"hasAccess"`
	Reason          string     `json:"reason"`
	TrialExpiresAt  *time.Time `json:"trialExpiresAt,omitempty"`
	AccessExpiresAt *time.Time `json:"accessExpiresAt,omitempty"`
}

// CheckAccess evaluates a session id to an access decision. The ordering is
// load bearing: paid access is checked before trial expiry so a user who
// pays during their trial can never race into a paywall.
func (e *Engine) CheckAccess(id string) (*Decision, error) {
	now := time.Now().UTC()
	if id == "" {
		return &Decision{Reason: ReasonUnknownSession}, nil
	}
	s, err := e.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Dead(now) {
		return &Decision{Reason: ReasonUnknownSession}, nil
	}
	e.touch(s, now)

	if s.PaidActive(now) {
		expires := s.PaidExpires.Time
		return &Decision{HasAccess: true, Reason: ReasonPaidActive, AccessExpiresAt: &expires}, nil
	}
	if s.TrialActive(now) {
		expires := s.TrialExpires
		return &Decision{HasAccess: true, Reason: ReasonTrialActive, TrialExpiresAt: &expires}, nil
	}
	expires := s.TrialExpires
	return &Decision{Reason: ReasonExpired, TrialExpiresAt: &expires}, nil
}
