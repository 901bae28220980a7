package events

import (
	"time"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventSessionEscalated    EventType = "session_escalated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID int64                 `json:"ticket_id"`
	UserID   string                `json:"user_id"`
	Priority domain.TicketPriority `json:"priority"`
	Context  string                `json:"escalation_context,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  int64               `json:"ticket_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// SessionEscalatedPayload payload.
type SessionEscalatedPayload struct {
	UserID   string `json:"user_id"`
	TicketID int64  `json:"ticket_id"`
}
