package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// MemoryTicketRepository is a process-local ticket store. It backs
// development runs without a database and the test suites. Id
// assignment is a single-writer sequence under the mutex, so ids stay
// unique and monotonic under concurrent creates.
type MemoryTicketRepository struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]domain.Ticket
}

// NewMemoryTicketRepository creates an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{nextID: 1, tickets: make(map[int64]domain.Ticket)}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = r.nextID
	r.nextID++
	ticket.CreatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return &ticket, nil
}

func (r *MemoryTicketRepository) ListByUser(_ context.Context, userID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.UserID == userID {
			result = append(result, ticket)
		}
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryTicketRepository) ListAll(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		result = append(result, ticket)
	}
	sortByCreation(result)
	return result, nil
}

func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, id int64, next domain.TicketStatus, validate func(current domain.TicketStatus) error) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if err := validate(ticket.Status); err != nil {
		return nil, err
	}
	ticket.Status = next
	r.tickets[id] = ticket
	return &ticket, nil
}

func (r *MemoryTicketRepository) UpdatePriority(_ context.Context, id int64, next domain.TicketPriority, validate func(current domain.TicketPriority) error) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if err := validate(ticket.Priority); err != nil {
		return nil, err
	}
	ticket.Priority = next
	r.tickets[id] = ticket
	return &ticket, nil
}

func sortByCreation(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID < tickets[j].ID
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}

// MemorySessionRepository is a process-local session store for
// development runs and tests.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

// NewMemorySessionRepository creates an empty store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]domain.Session)}
}

func (r *MemorySessionRepository) Get(_ context.Context, userID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := sess
	copied.History = append([]domain.Turn(nil), sess.History...)
	copied.State.KBAttempted = make(map[string]bool, len(sess.State.KBAttempted))
	for k, v := range sess.State.KBAttempted {
		copied.State.KBAttempted[k] = v
	}
	return &copied, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	copied.History = append([]domain.Turn(nil), session.History...)
	copied.State.KBAttempted = make(map[string]bool, len(session.State.KBAttempted))
	for k, v := range session.State.KBAttempted {
		copied.State.KBAttempted[k] = v
	}
	r.sessions[session.UserID] = copied
	return nil
}
