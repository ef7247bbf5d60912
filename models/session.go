package models

import (
	"app/lib"
	"database/sql"
	"time"
)

// Session is an anonymous visitor session. Payment state is embedded: each
// session owns one ephemeral receive address whose private key is derivable
// from the session id and PaySalt plus the server secret, never stored.
type Session struct {
	ID           string    `json:"id"`
	Fingerprint  string    `json:"-"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
	LastSeen     time.Time `json:"lastSeen"`
	Expires      time.Time `json:"expires"`
	TrialExpires time.Time `json:"trialExpires"`

	Paid        bool         `json:"paid"`
	PaidExpires sql.NullTime `json:"paidExpires"`

	PayAddress  string         `json:"payAddress"`
	PaySalt     string         `json:"-"`
	PayRef      string         `json:"payRef"`
	PayTx       sql.NullString `json:"payTx"`
	PayAmount   *lib.BigInt    `json:"payAmount"`
	PayReceived sql.NullTime   `json:"payReceived"`
}

// TrialActive reports whether the trial window is still open at the given instant.
func (s *Session) TrialActive(now time.Time) bool {
	return now.Before(s.TrialExpires)
}

// PaidActive reports whether paid access is in effect at the given instant.
func (s *Session) PaidActive(now time.Time) bool {
	return s.Paid && s.PaidExpires.Valid && now.Before(s.PaidExpires.Time)
}

// Dead reports whether the session is past its absolute expiry.
func (s *Session) Dead(now time.Time) bool {
	return !now.Before(s.Expires)
}
