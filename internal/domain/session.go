package domain

import "time"

// Role enumerates the two caller roles the system recognizes.
type Role string

const (
	RoleEndUser          Role = "end_user"
	RoleServiceDeskAgent Role = "service_desk_agent"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleEndUser || r == RoleServiceDeskAgent
}

// Principal identifies the authenticated caller of an operation.
// Identity and role come from the token, never from the utterance.
type Principal struct {
	UserID string
	Role   Role
}

// Turn is one utterance/response pair in a session history.
type Turn struct {
	TurnID    string    `json:"turn_id"`
	TraceID   string    `json:"trace_id"`
	Utterance string    `json:"utterance"`
	Response  string    `json:"response"`
	At        time.Time `json:"at"`
}

// SessionState carries the sticky flags the routing engine consults.
type SessionState struct {
	KBAttempted map[string]bool `json:"kb_attempted"`
	Escalated   bool            `json:"escalated"`
	LastTopic   string          `json:"last_topic,omitempty"`
}

// Session is the per-user conversational memory. One session per
// user id; created on first contact, reset explicitly, never deleted.
type Session struct {
	UserID    string       `json:"user_id"`
	Role      Role         `json:"role"`
	History   []Turn       `json:"history"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSession returns a fresh session for the user.
func NewSession(userID string, role Role) *Session {
	now := time.Now()
	return &Session{
		UserID:    userID,
		Role:      role,
		State:     SessionState{KBAttempted: make(map[string]bool)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasTurn reports whether a turn id was already recorded. Mutators
// keyed by turn id are no-ops when it was.
func (s *Session) HasTurn(turnID string) bool {
	for i := range s.History {
		if s.History[i].TurnID == turnID {
			return true
		}
	}
	return false
}

// RecordTurn appends an utterance/response pair to the history.
func (s *Session) RecordTurn(turnID, traceID, utterance, response string) {
	if s.HasTurn(turnID) {
		return
	}
	s.History = append(s.History, Turn{
		TurnID:    turnID,
		TraceID:   traceID,
		Utterance: utterance,
		Response:  response,
		At:        time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// MarkKBAttempted records that the knowledge base was tried for a topic.
func (s *Session) MarkKBAttempted(topicKey string) {
	if s.State.KBAttempted == nil {
		s.State.KBAttempted = make(map[string]bool)
	}
	s.State.KBAttempted[topicKey] = true
	s.State.LastTopic = topicKey
	s.UpdatedAt = time.Now()
}

// KBAttempted reports whether the knowledge base was tried for a topic.
func (s *Session) KBAttempted(topicKey string) bool {
	return s.State.KBAttempted[topicKey]
}

// MarkEscalated flags that a ticket exists for this session.
func (s *Session) MarkEscalated() {
	s.State.Escalated = true
	s.UpdatedAt = time.Now()
}

// LastResponse returns the most recent recorded response, or "".
func (s *Session) LastResponse() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1].Response
}

// Reset clears history and flags, preserving identity and role.
func (s *Session) Reset() {
	s.History = nil
	s.State = SessionState{KBAttempted: make(map[string]bool)}
	s.UpdatedAt = time.Now()
}
