package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService owns the ticket and message workflows. Every
// operation takes the resolved user and filters by ownership; a
// ticket owned by someone else is reported exactly like a missing
// one.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, messages repository.MessageRepository, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{tickets: tickets, messages: messages, dispatcher: dispatcher}
}

// CreateTicket persists a new open ticket owned by the user.
func (s *TicketService) CreateTicket(ctx context.Context, user *domain.User, title, description string) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		UserID:      user.ID,
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		UserID:    user.ID,
		Timestamp: time.Now(),
		Payload:   events.TicketCreatedPayload{Title: ticket.Title},
	})
	return ticket, nil
}

// ListTickets returns the user's tickets in creation order.
func (s *TicketService) ListTickets(ctx context.Context, user *domain.User) ([]domain.Ticket, error) {
	return s.tickets.ListByUser(ctx, user.ID)
}

// GetTicket loads one of the user's tickets.
func (s *TicketService) GetTicket(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByIDForUser(ctx, ticketID, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}
	return ticket, nil
}

// ListMessages returns a ticket's thread in creation order, gated by
// the same ownership check as GetTicket.
func (s *TicketService) ListMessages(ctx context.Context, user *domain.User, ticketID string) ([]domain.Message, error) {
	ticket, err := s.GetTicket(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticket.ID)
}

// AddMessage appends a human-authored message to one of the user's
// tickets.
func (s *TicketService) AddMessage(ctx context.Context, user *domain.User, ticketID, content string) (*domain.Message, error) {
	ticket, err := s.GetTicket(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		TicketID: ticket.ID,
		Content:  content,
		IsAI:     false,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventMessageAdded,
		TicketID:  ticket.ID,
		UserID:    user.ID,
		Timestamp: time.Now(),
		Payload: events.MessageAddedPayload{
			MessageID:   msg.ID,
			IsAI:        false,
			BodyPreview: bodyPreview(msg.Content),
		},
	})
	return msg, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func bodyPreview(content string) string {
	const max = 120
	content = strings.TrimSpace(content)
	if len(content) <= max {
		return content
	}
	return content[:max]
}
