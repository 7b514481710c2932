package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Reads are scoped
// to an owning user in SQL, so a ticket owned by someone else scans
// exactly like a missing row.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByIDForUser(ctx context.Context, id, userID string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, user_id, title, description, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at`

	ticket.ID = uuid.NewString()
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.UserID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
	).Scan(&ticket.CreatedAt)
}

func (r *ticketRepository) GetByIDForUser(ctx context.Context, id, userID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, user_id, title, description, status, created_at
        FROM tickets WHERE id=$1 AND user_id=$2`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	const query = `
        SELECT id, user_id, title, description, status, created_at
        FROM tickets WHERE user_id=$1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
