package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/llm"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]domain.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.NewString()
	r.byEmail[user.Email] = *user
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
	clock   time.Time
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{clock: time.Now()}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = uuid.NewString()
	r.clock = r.clock.Add(time.Millisecond)
	ticket.CreatedAt = r.clock
	r.tickets = append(r.tickets, *ticket)
	return nil
}

func (r *fakeTicketRepo) GetByIDForUser(_ context.Context, id, userID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ID == id && ticket.UserID == userID {
			copied := ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListByUser(_ context.Context, userID string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.UserID == userID {
			result = append(result, ticket)
		}
	}
	return result, nil
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  []domain.Message
	clock     time.Time
	createErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{clock: time.Now()}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	msg.ID = uuid.NewString()
	r.clock = r.clock.Add(time.Millisecond)
	msg.CreatedAt = r.clock
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Message
	for _, msg := range r.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

// fakeProvider replays scripted fragments, optionally failing midway.
type fakeProvider struct {
	fragments []string
	failAfter int // -1 disables the mid-stream failure
	openErr   error
	lastReq   llm.Request
}

func (p *fakeProvider) StreamCompletion(_ context.Context, req llm.Request) (*llm.Stream, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.lastReq = req
	index := 0
	return llm.NewStream(func() (string, error) {
		if p.failAfter >= 0 && index == p.failAfter {
			return "", errors.New("connection reset")
		}
		if index >= len(p.fragments) {
			return "", io.EOF
		}
		fragment := p.fragments[index]
		index++
		return fragment, nil
	}, nil), nil
}

type fakeGuard struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{held: make(map[string]bool)}
}

func (g *fakeGuard) Acquire(_ context.Context, ticketID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[ticketID] {
		return false
	}
	g.held[ticketID] = true
	return true
}

func (g *fakeGuard) Release(_ context.Context, ticketID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, ticketID)
}
