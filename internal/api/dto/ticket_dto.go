package dto

import (
	"time"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// TicketSummary is the wire shape of a ticket.
type TicketSummary struct {
	ID                int64                 `json:"id"`
	UserID            string                `json:"user_id"`
	Description       string                `json:"description"`
	Priority          domain.TicketPriority `json:"priority"`
	Status            domain.TicketStatus   `json:"status"`
	TraceID           string                `json:"trace_id"`
	EscalationContext string                `json:"escalation_context,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// FromTicket maps the domain aggregate onto the wire shape.
func FromTicket(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:                ticket.ID,
		UserID:            ticket.UserID,
		Description:       ticket.Description,
		Priority:          ticket.Priority,
		Status:            ticket.Status,
		TraceID:           ticket.TraceID,
		EscalationContext: ticket.EscalationContext,
		CreatedAt:         ticket.CreatedAt,
	}
}

// UpdateStatusRequest advances a ticket's lifecycle state.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// DowngradePriorityRequest lowers a ticket's priority.
type DowngradePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}
