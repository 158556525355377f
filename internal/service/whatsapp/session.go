package whatsapp

import (
	"sync"
	"time"
)

// DefaultSessionTTL is how long a clarification waits for the sender's answer.
const DefaultSessionTTL = 30 * time.Minute

// Clarification is the pending question asked to a sender: the original report, the options
// offered, and the answers already given in earlier rounds.
type Clarification struct {
	Transcription string
	Code          string
	Options       []string
	AnimalID      string
	FeedTypeHint  string
	CreatedAt     time.Time
}

// SessionManager handles per-sender clarification state.
type SessionManager struct {
	sessions map[string]Clarification
	ttl      time.Duration
	now      func() time.Time
	mu       sync.RWMutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]Clarification),
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetSession retrieves the open clarification for a sender, ignoring expired ones.
func (sm *SessionManager) GetSession(sender string) (Clarification, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	c, ok := sm.sessions[sender]
	if !ok || sm.now().Sub(c.CreatedAt) > sm.ttl {
		return Clarification{}, false
	}
	return c, true
}

// UpdateSession stores the clarification for a sender.
func (sm *SessionManager) UpdateSession(sender string, c Clarification) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = sm.now()
	}
	sm.sessions[sender] = c
}

// ClearSession removes a sender's session.
func (sm *SessionManager) ClearSession(sender string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sender)
}
