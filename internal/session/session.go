// Package session holds per-login conversation state and the process-wide
// resource cache. A session exists from successful login to logout; nothing
// about it is global.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"axisconnect/internal/domain"
)

// ErrGenerationActive is returned when a response is requested while a
// previous one is still streaming for the same session.
var ErrGenerationActive = errors.New("a response is already being generated for this session")

// Session is the state of one authenticated conversation.
type Session struct {
	id string

	mu      sync.Mutex
	profile domain.Profile
	history []domain.Turn
	active  bool
}

// New starts a session for an authenticated employee. History begins empty:
// the welcome banner is a surface concern, not a conversation turn.
func New(profile domain.Profile) *Session {
	return &Session{id: uuid.NewString(), profile: profile}
}

// ID returns the session's unique identifier, used to correlate log records
// across one login.
func (s *Session) ID() string {
	return s.id
}

// Profile returns the employee record bound to this session.
func (s *Session) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// History returns a copy of the conversation so far, oldest first.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// AppendExchange records one completed user/assistant pair. Exchanges are
// only ever appended as pairs, so the history always alternates strictly.
func (s *Session) AppendExchange(userInput, assistantReply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		domain.Turn{Role: domain.RoleUser, Content: userInput},
		domain.Turn{Role: domain.RoleAssistant, Content: assistantReply},
	)
}

// Len returns the number of turns recorded so far.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Acquire claims the session's single generation slot.
func (s *Session) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrGenerationActive
	}
	s.active = true
	return nil
}

// Release frees the generation slot claimed by Acquire.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}
