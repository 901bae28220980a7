package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// ErrTicketNotFound is returned when no ticket exists for an id.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepository encapsulates ticket persistence. Ids are assigned
// by the store's serial sequence, never by the caller.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	// UpdateStatus reads the current status, runs validate against it
	// and writes the new status as one atomic unit. The row is locked
	// for the duration so concurrent updates serialize.
	UpdateStatus(ctx context.Context, id int64, next domain.TicketStatus, validate func(current domain.TicketStatus) error) (*domain.Ticket, error)
	// UpdatePriority applies the same read-validate-write discipline
	// to the priority column.
	UpdatePriority(ctx context.Context, id int64, next domain.TicketPriority, validate func(current domain.TicketPriority) error) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, user_id, description, priority, status, trace_id, escalation_context, created_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, description, priority, status, trace_id, escalation_context)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.TraceID,
		ticket.EscalationContext,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, next domain.TicketStatus, validate func(current domain.TicketStatus) error) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
		current, err := scanTicket(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		if err := validate(current.Status); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE tickets SET status=$1 WHERE id=$2`, next, id); err != nil {
			return err
		}
		current.Status = next
		ticket = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) UpdatePriority(ctx context.Context, id int64, next domain.TicketPriority, validate func(current domain.TicketPriority) error) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
		current, err := scanTicket(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		if err := validate(current.Priority); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE tickets SET priority=$1 WHERE id=$2`, next, id); err != nil {
			return err
		}
		current.Priority = next
		ticket = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.TraceID,
		&ticket.EscalationContext,
		&ticket.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Status,
			&ticket.TraceID,
			&ticket.EscalationContext,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
