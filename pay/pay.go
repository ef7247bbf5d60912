package pay

import (
	"errors"
	"sync"

	"app/lib"
)

// ErrUnknownSession is returned by operations referencing a session id that
// doesn't exist or is past its absolute expiry.
var ErrUnknownSession = errors.New("pay: unknown session")

// ErrNoOperator is returned by sweep operations when no valid operator
// address is configured, funds stay parked on the ephemeral addresses.
var ErrNoOperator = errors.New("pay: operator address not configured")

// Engine ties together the session store, identity issuer, payment verifier
// and sweep engine. One instance is built at process start and handed to the
// HTTP layer and the background jobs.
type Engine struct {
	cfg    *Config
	repo   Repo
	ledger Ledger
	issuer *Issuer

	// Per-session mutexes guard payment state transitions. Per-address
	// in-flight markers prevent concurrent transfer submission from the same
	// ephemeral account. No engine-wide lock, unrelated sessions never
	// serialize on each other.
	locks    sync.Map
	sweeping sync.Map

	// OnPaid is invoked after a payment is first confirmed for a session,
	// typically to schedule an immediate sweep.
	OnPaid func(sessionID string)
	// Alert is invoked on integrity failures that need an operator.
	Alert func(subject, body string)
}

func New(cfg *Config, repo Repo, ledger Ledger) *Engine {
	e := &Engine{cfg: cfg, repo: repo, ledger: ledger, issuer: NewIssuer(cfg)}
	e.Alert = func(subject, body string) {
		if to := lib.Env("ALERT_EMAIL", ""); to != "" {
			lib.SendEmail(to, subject, body)
		}
	}
	return e
}

func (e *Engine) Config() *Config {
	return e.cfg
}

func (e *Engine) Issuer() *Issuer {
	return e.issuer
}

func (e *Engine) lockFor(sessionID string) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (e *Engine) alert(subject, body string) {
	lib.LogError("alert: "+subject, lib.J{"body": body})
	if e.Alert != nil {
		e.Alert(subject, body)
	}
}
