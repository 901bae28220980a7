package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/internal/events"
	"github.com/spec-kit/support-pilot/internal/repository"
	"github.com/spec-kit/support-pilot/pkg/util"
)

// allowedTransitions defines the monotonic ticket lifecycle. Forward
// skips are allowed; moving backward or out of Closed is not.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketCreateInput describes an escalation's ticket payload.
type TicketCreateInput struct {
	UserID            string
	Description       string
	Priority          domain.TicketPriority
	TraceID           string
	EscalationContext string
}

// TicketService owns the ticket lifecycle. RBAC is enforced here, from
// the authenticated principal, so no caller can bypass it by shaping a
// request.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher events.Dispatcher, logger *zap.Logger) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher, logger: logger}
}

// Create opens a new ticket. Ids are assigned by the store; creation
// is atomic, so a failure leaves no partial ticket behind.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, util.NewValidationError("ticket description must not be empty", nil)
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, util.NewValidationError("unknown ticket priority", map[string]any{
			"priority": string(input.Priority),
		})
	}

	ticket := &domain.Ticket{
		UserID:            input.UserID,
		Description:       description,
		Priority:          input.Priority,
		Status:            domain.TicketStatusOpen,
		TraceID:           input.TraceID,
		EscalationContext: input.EscalationContext,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.NewFatal(err)
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("user_id", ticket.UserID),
		zap.String("priority", string(ticket.Priority)),
		zap.String("trace_id", ticket.TraceID))

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketCreated,
		TraceID: ticket.TraceID,
		Payload: events.TicketCreatedPayload{
			TicketID: ticket.ID,
			UserID:   ticket.UserID,
			Priority: ticket.Priority,
			Context:  ticket.EscalationContext,
		},
	})
	return ticket, nil
}

// GetByID fetches one ticket. End users only see their own.
func (s *TicketService) GetByID(ctx context.Context, principal domain.Principal, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if principal.Role == domain.RoleEndUser && ticket.UserID != principal.UserID {
		s.logger.Warn("ticket access denied",
			zap.Int64("ticket_id", id), zap.String("user_id", principal.UserID))
		return nil, util.NewPermissionError("access to ticket denied")
	}
	return ticket, nil
}

// List returns tickets visible to the principal, oldest first. End
// users see only their own; service desk agents see all.
func (s *TicketService) List(ctx context.Context, principal domain.Principal) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	var err error
	if principal.Role == domain.RoleServiceDeskAgent {
		tickets, err = s.tickets.ListAll(ctx)
	} else {
		tickets, err = s.tickets.ListByUser(ctx, principal.UserID)
	}
	if err != nil {
		return nil, mapRepoError(err)
	}
	return tickets, nil
}

// UpdateStatus advances a ticket along the lifecycle. Service desk
// agents only. The read-validate-write is one atomic unit in the store.
func (s *TicketService) UpdateStatus(ctx context.Context, principal domain.Principal, id int64, next domain.TicketStatus) (*domain.Ticket, error) {
	if principal.Role != domain.RoleServiceDeskAgent {
		s.logger.Warn("status update denied",
			zap.Int64("ticket_id", id), zap.String("user_id", principal.UserID))
		return nil, util.NewPermissionError("only service desk agents can update ticket status")
	}
	if !domain.ValidStatus(next) {
		return nil, util.NewValidationError("unknown ticket status", map[string]any{
			"status": string(next),
		})
	}

	var oldStatus domain.TicketStatus
	ticket, err := s.tickets.UpdateStatus(ctx, id, next, func(current domain.TicketStatus) error {
		if !isValidTransition(current, next) {
			return util.NewInvalidTransition("status may only move forward", map[string]any{
				"current": string(current),
				"next":    string(next),
			})
		}
		oldStatus = current
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("ticket status updated",
		zap.Int64("ticket_id", id),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(next)))

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketStatusChanged,
		TraceID: ticket.TraceID,
		Payload: events.TicketStatusChangedPayload{
			TicketID:  ticket.ID,
			OldStatus: oldStatus,
			NewStatus: next,
		},
	})
	return ticket, nil
}

// DowngradePriority lowers a ticket's priority. Service desk agents
// only, and only downward; priority is otherwise immutable after
// creation.
func (s *TicketService) DowngradePriority(ctx context.Context, principal domain.Principal, id int64, next domain.TicketPriority) (*domain.Ticket, error) {
	if principal.Role != domain.RoleServiceDeskAgent {
		return nil, util.NewPermissionError("only service desk agents can change ticket priority")
	}
	if !domain.ValidPriority(next) {
		return nil, util.NewValidationError("unknown ticket priority", map[string]any{
			"priority": string(next),
		})
	}

	ticket, err := s.tickets.UpdatePriority(ctx, id, next, func(current domain.TicketPriority) error {
		if !domain.LowerPriority(next, current) {
			return util.NewValidationError("priority can only be downgraded", map[string]any{
				"current": string(current),
				"next":    string(next),
			})
		}
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("ticket priority downgraded",
		zap.Int64("ticket_id", id), zap.String("priority", string(next)))
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrTicketNotFound) {
		return util.NewNotFound("ticket", nil)
	}
	var domainErr *util.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return util.NewFatal(err)
}
