package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates escalation urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh:
		return true
	}
	return false
}

// priorityRank orders priorities for downgrade validation.
var priorityRank = map[TicketPriority]int{
	TicketPriorityLow:    0,
	TicketPriorityNormal: 1,
	TicketPriorityHigh:   2,
}

// LowerPriority reports whether a is strictly lower than b.
func LowerPriority(a, b TicketPriority) bool {
	return priorityRank[a] < priorityRank[b]
}

// Ticket is the aggregate for escalated support requests.
// Priority is immutable through the status path; status only moves
// forward along Open -> InProgress -> Closed.
type Ticket struct {
	ID                int64
	UserID            string
	Description       string
	Priority          TicketPriority
	Status            TicketStatus
	TraceID           string
	EscalationContext string
	CreatedAt         time.Time
}
