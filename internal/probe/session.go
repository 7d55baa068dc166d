// Package probe drives the optional active-probing subsystem. All
// transmissions are requested through the safety gateway; this package
// never touches a radio directly.
package probe

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// SessionState is the probe-capable session lifecycle.
type SessionState string

const (
	StateDisabled SessionState = "disabled"
	StateArmed    SessionState = "armed"
	StateActive   SessionState = "active"
	StateCooldown SessionState = "cooldown"
)

// ErrNotActive is returned when discovery is requested outside Active.
var ErrNotActive = errors.New("probe session not active")

// ErrBadToken is returned when activation is attempted without the
// session-scoped confirmation token.
var ErrBadToken = errors.New("invalid confirmation token")

// Session is the per-process probe state machine:
// Disabled -> Armed -> Active <-> Cooldown, with Disabled terminal on
// shutdown. Armed -> Active requires the explicit confirmation token and
// is otherwise blocked.
type Session struct {
	mu            sync.Mutex
	state         SessionState
	confirmToken  string
	cooldownUntil time.Time
	now           func() time.Time
}

// NewSession returns a disabled session gated by confirmToken.
func NewSession(confirmToken string) *Session {
	return &Session{state: StateDisabled, confirmToken: confirmToken, now: time.Now}
}

// State returns the current state, resolving an expired cooldown back to
// Active.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	if s.state == StateCooldown && s.now().After(s.cooldownUntil) {
		s.state = StateActive
	}
	return s.state
}

// Arm moves Disabled -> Armed.
func (s *Session) Arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisabled {
		return fmt.Errorf("arm: cannot arm from %s", s.state)
	}
	s.state = StateArmed
	return nil
}

// Activate moves Armed -> Active, requiring the confirmation token.
func (s *Session) Activate(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateArmed {
		return fmt.Errorf("activate: cannot activate from %s", s.state)
	}
	if s.confirmToken == "" || token != s.confirmToken {
		return ErrBadToken
	}
	s.state = StateActive
	return nil
}

// EnterCooldown moves Active -> Cooldown for the given duration.
func (s *Session) EnterCooldown(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stateLocked() != StateActive {
		return fmt.Errorf("cooldown: cannot enter cooldown from %s", s.state)
	}
	s.state = StateCooldown
	s.cooldownUntil = s.now().Add(d)
	return nil
}

// Shutdown moves any state to Disabled.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisabled
}

// Active reports whether transmissions may currently be requested.
func (s *Session) Active() bool {
	return s.State() == StateActive
}
