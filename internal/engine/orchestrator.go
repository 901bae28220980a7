package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/internal/events"
	"github.com/spec-kit/support-pilot/internal/intent"
	"github.com/spec-kit/support-pilot/internal/knowledge"
	"github.com/spec-kit/support-pilot/internal/observability"
	"github.com/spec-kit/support-pilot/internal/service"
	"github.com/spec-kit/support-pilot/internal/session"
	"github.com/spec-kit/support-pilot/pkg/util"
)

// TurnResult is the engine's answer for one turn.
type TurnResult struct {
	ResponseText string
	TraceID      string
}

// Orchestrator is the per-turn decision engine. Each turn walks
// Start -> IntentClassified -> {Answering, Escalating, Querying} ->
// Responded; session mutations happen only at the Responded commit,
// so a cancelled turn leaves no state behind.
type Orchestrator struct {
	sessions   *session.Store
	tickets    *service.TicketService
	classifier intent.Classifier
	lookup     knowledge.Lookup
	tracer     *observability.Tracer
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewOrchestrator wires the engine.
func NewOrchestrator(
	sessions *session.Store,
	tickets *service.TicketService,
	classifier intent.Classifier,
	lookup knowledge.Lookup,
	tracer *observability.Tracer,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		tickets:    tickets,
		classifier: classifier,
		lookup:     lookup,
		tracer:     tracer,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// turnContext carries everything a single turn accumulates.
type turnContext struct {
	turnID    string
	traceID   string
	principal domain.Principal
	utterance string
	startedAt time.Time
	negative  bool
}

// HandleTurn processes one inbound message end to end and always
// returns a user-safe response. Internal errors are mapped at this
// boundary; nothing below it leaves inconsistent state.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID string, role domain.Role, utterance string) (*TurnResult, error) {
	turn := &turnContext{
		turnID:    uuid.NewString(),
		principal: domain.Principal{UserID: userID, Role: role},
		utterance: utterance,
		startedAt: time.Now(),
	}
	turn.traceID = o.tracer.StartTrace(turn.turnID)
	o.tracer.Record(turn.traceID, "engine", "turn started")

	sess, err := o.sessions.GetOrCreate(ctx, userID, role)
	if err != nil {
		return o.fail(ctx, turn, util.NewFatal(err))
	}

	classification, err := o.classifier.Classify(ctx, utterance, sess.History)
	if err != nil {
		// Abandon cleanly: nothing was mutated yet.
		o.logger.Warn("classification failed, abandoning turn",
			zap.String("trace_id", turn.traceID), zap.Error(err))
		return o.fail(ctx, turn, util.NewFatal(err))
	}
	o.tracer.Record(turn.traceID, "classifier", "intent "+string(classification.Intent))
	if classification.NegativeSignal {
		turn.negative = true
		o.tracer.RecordNegativeSignal(turn.traceID)
		o.tracer.Record(turn.traceID, "classifier", "negative signal detected")
	}

	// Dissatisfaction beats every other intent: a reported failure
	// must never be routed into another knowledge base attempt.
	if classification.NegativeSignal && !sess.State.Escalated {
		return o.escalate(ctx, turn, sess.LastResponse(), domain.TicketPriorityHigh)
	}

	switch classification.Intent {
	case intent.IntentFAQ:
		return o.answerFromKnowledgeBase(ctx, turn, sess)
	case intent.IntentCreateTicket:
		priority := domain.TicketPriorityNormal
		if classification.Urgency {
			priority = domain.TicketPriorityHigh
		}
		return o.escalate(ctx, turn, "", priority)
	case intent.IntentStatusQuery:
		return o.queryStatus(ctx, turn)
	default:
		return o.fail(ctx, turn, util.NewInvariantViolation("unknown intent "+string(classification.Intent)))
	}
}

func (o *Orchestrator) answerFromKnowledgeBase(ctx context.Context, turn *turnContext, sess *domain.Session) (*TurnResult, error) {
	o.tracer.Record(turn.traceID, "knowledge", "lookup "+preview(turn.utterance))

	result, err := o.lookup.Lookup(ctx, turn.utterance)
	if err != nil {
		if ctx.Err() != nil {
			return o.abandon(ctx, turn)
		}
		// The retry wrapper already degraded transient failures; any
		// remaining error degrades to escalation as well.
		o.logger.Warn("knowledge lookup error, escalating",
			zap.String("trace_id", turn.traceID), zap.Error(err))
		result = knowledge.NotFound
	}

	if !result.Found {
		o.tracer.Record(turn.traceID, "knowledge", "not found")
		return o.escalate(ctx, turn, "KB_NOT_FOUND: "+turn.utterance, domain.TicketPriorityNormal)
	}

	o.tracer.Record(turn.traceID, "knowledge", "solution found for "+result.TopicKey)
	if sess.KBAttempted(result.TopicKey) {
		o.tracer.Record(turn.traceID, "knowledge", "topic already attempted this session")
	}
	response := result.Solution
	topicKey := result.TopicKey
	return o.respond(ctx, turn, response, domain.OutcomeL1Resolved, func(s *domain.Session) {
		s.MarkKBAttempted(topicKey)
	})
}

func (o *Orchestrator) escalate(ctx context.Context, turn *turnContext, escalationContext string, priority domain.TicketPriority) (*TurnResult, error) {
	if ctx.Err() != nil {
		return o.abandon(ctx, turn)
	}
	o.tracer.Record(turn.traceID, "tickets", "create")

	ticket, err := o.tickets.Create(ctx, service.TicketCreateInput{
		UserID:            turn.principal.UserID,
		Description:       turn.utterance,
		Priority:          priority,
		TraceID:           turn.traceID,
		EscalationContext: escalationContext,
	})
	if err != nil {
		// Atomic create: no partial ticket exists, and the session is
		// untouched.
		return o.fail(ctx, turn, err)
	}
	o.tracer.Record(turn.traceID, "tickets", fmt.Sprintf("created #%d", ticket.ID))

	response := fmt.Sprintf(
		"I've escalated this to our support team. Your ticket number is %d (priority %s). An agent will follow up shortly.",
		ticket.ID, strings.ToLower(string(ticket.Priority)))

	result, err := o.respond(ctx, turn, response, domain.OutcomeL2Escalated, func(s *domain.Session) {
		s.MarkEscalated()
	})
	if err != nil {
		return result, err
	}
	o.publishEscalated(ctx, turn, ticket.ID)
	return result, nil
}

func (o *Orchestrator) queryStatus(ctx context.Context, turn *turnContext) (*TurnResult, error) {
	o.tracer.Record(turn.traceID, "tickets", "status query")

	var response string
	if id, ok := ticketIDFromUtterance(turn.utterance); ok {
		ticket, err := o.tickets.GetByID(ctx, turn.principal, id)
		if err != nil {
			// Permission and not-found are handled outcomes of a
			// status query, not turn failures.
			response = util.UserMessage(err)
			if !util.IsCode(err, util.CodePermission) && !util.IsCode(err, util.CodeNotFound) {
				return o.fail(ctx, turn, err)
			}
		} else {
			response = formatTicket(ticket)
		}
	} else {
		tickets, err := o.tickets.List(ctx, turn.principal)
		if err != nil {
			return o.fail(ctx, turn, err)
		}
		response = formatTicketList(tickets)
	}

	return o.respond(ctx, turn, response, domain.OutcomeStatusQuery, nil)
}

// respond commits the turn: the session mutation and the history
// record are applied together, then the trace completes. Nothing is
// written when the context was already cancelled.
func (o *Orchestrator) respond(ctx context.Context, turn *turnContext, response string, outcome domain.TraceOutcome, mutate func(*domain.Session)) (*TurnResult, error) {
	if ctx.Err() != nil {
		return o.abandon(ctx, turn)
	}

	err := o.sessions.Apply(ctx, turn.principal.UserID, turn.turnID, func(s *domain.Session) {
		if mutate != nil {
			mutate(s)
		}
		s.RecordTurn(turn.turnID, turn.traceID, turn.utterance, response)
	})
	if err != nil {
		return o.fail(ctx, turn, util.NewFatal(err))
	}

	o.tracer.Record(turn.traceID, "engine", "responded")
	if err := o.tracer.Complete(ctx, turn.traceID, outcome, time.Since(turn.startedAt)); err != nil {
		return nil, err
	}
	return &TurnResult{ResponseText: response, TraceID: turn.traceID}, nil
}

// fail maps an internal error to the fixed user-safe message set and
// completes the trace with an error outcome. No session state is
// written on a failed turn.
func (o *Orchestrator) fail(ctx context.Context, turn *turnContext, err error) (*TurnResult, error) {
	domainErr := util.ToDomainError(err)
	o.logger.Error("turn failed",
		zap.String("trace_id", turn.traceID),
		zap.String("code", domainErr.Code),
		zap.Error(domainErr))
	if domainErr.Code == util.CodeInvariant {
		// Programming error: surface to the caller, not the user.
		_ = o.tracer.Complete(ctx, turn.traceID, domain.OutcomeError, time.Since(turn.startedAt))
		return nil, err
	}
	_ = o.tracer.Complete(ctx, turn.traceID, domain.OutcomeError, time.Since(turn.startedAt))
	return &TurnResult{ResponseText: util.UserMessage(err), TraceID: turn.traceID}, nil
}

// abandon finishes a cancelled turn without mutating anything.
func (o *Orchestrator) abandon(ctx context.Context, turn *turnContext) (*TurnResult, error) {
	o.logger.Info("turn abandoned", zap.String("trace_id", turn.traceID))
	_ = o.tracer.Complete(context.WithoutCancel(ctx), turn.traceID, domain.OutcomeError, time.Since(turn.startedAt))
	return nil, ctx.Err()
}

func (o *Orchestrator) publishEscalated(ctx context.Context, turn *turnContext, ticketID int64) {
	if o.dispatcher == nil {
		return
	}
	_ = o.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSessionEscalated,
		TraceID:   turn.traceID,
		Timestamp: time.Now(),
		Payload: events.SessionEscalatedPayload{
			UserID:   turn.principal.UserID,
			TicketID: ticketID,
		},
	})
}

// ticketIDFromUtterance extracts the first integer in the utterance,
// used to scope a status query to one ticket. Identity and role never
// come from here.
func ticketIDFromUtterance(utterance string) (int64, bool) {
	fields := strings.FieldsFunc(utterance, func(r rune) bool {
		return r < '0' || r > '9'
	})
	for _, field := range fields {
		if id, err := strconv.ParseInt(field, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func formatTicket(ticket *domain.Ticket) string {
	return fmt.Sprintf("Ticket %d: %s (status %s, priority %s, opened %s)",
		ticket.ID,
		ticket.Description,
		strings.ToLower(string(ticket.Status)),
		strings.ToLower(string(ticket.Priority)),
		ticket.CreatedAt.Format("2006-01-02"))
}

func formatTicketList(tickets []domain.Ticket) string {
	if len(tickets) == 0 {
		return "You have no tickets on record."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d ticket(s):", len(tickets)))
	for i := range tickets {
		sb.WriteString("\n- ")
		sb.WriteString(formatTicket(&tickets[i]))
	}
	return sb.String()
}

func preview(s string) string {
	if len(s) <= 80 {
		return s
	}
	return s[:77] + "..."
}
