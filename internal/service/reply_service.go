package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/llm"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// StreamGuard serializes reply streams per ticket. Implementations
// are best-effort; Acquire returns false only when another stream
// verifiably holds the ticket.
type StreamGuard interface {
	Acquire(ctx context.Context, ticketID string) bool
	Release(ctx context.Context, ticketID string)
}

// ReplyService drives AI replies: it assembles a ticket's message
// history, streams the completion fragment by fragment, and persists
// the assembled reply only after the provider signals completion. A
// failed or abandoned stream persists nothing.
type ReplyService struct {
	tickets  repository.TicketRepository
	messages repository.MessageRepository
	provider llm.Provider

	guard      StreamGuard
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewReplyService constructs the service. guard may be nil.
func NewReplyService(
	tickets repository.TicketRepository,
	messages repository.MessageRepository,
	provider llm.Provider,
	guard StreamGuard,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *ReplyService {
	return &ReplyService{
		tickets:    tickets,
		messages:   messages,
		provider:   provider,
		guard:      guard,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ReplyStream is a single-pass sequence of reply fragments. The
// caller pulls fragments with Recv until io.EOF, then may read the
// persisted message with Message. Close must always be called.
type ReplyStream struct {
	svc      *ReplyService
	ticket   *domain.Ticket
	userID   string
	upstream *llm.Stream
	ctx      context.Context
	cancel   context.CancelFunc
	assembly strings.Builder
	saved    *domain.Message
	done     bool
	closed   bool
}

// OpenStream checks ticket ownership, connects to the completion
// provider, and returns the fragment stream. Ownership failures are
// indistinguishable from missing tickets. Provider connection
// failures surface as UpstreamUnavailable before any fragment flows.
func (s *ReplyService) OpenStream(ctx context.Context, user *domain.User, ticketID string) (*ReplyStream, error) {
	ticket, err := s.tickets.GetByIDForUser(ctx, ticketID, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, err
	}

	history, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	if s.guard != nil && !s.guard.Acquire(ctx, ticket.ID) {
		return nil, apperrors.NewConflict("a reply is already streaming for this ticket")
	}

	streamCtx, cancel := context.WithCancel(ctx)
	upstream, err := s.provider.StreamCompletion(streamCtx, llm.Request{
		Messages: conversation(ticket, history),
	})
	if err != nil {
		cancel()
		s.releaseGuard(ticket.ID)
		return nil, apperrors.NewUpstreamUnavailable(err)
	}

	return &ReplyStream{
		svc:      s,
		ticket:   ticket,
		userID:   user.ID,
		upstream: upstream,
		ctx:      streamCtx,
		cancel:   cancel,
	}, nil
}

// conversation maps a ticket's thread to completion-provider turns.
// The ticket description seeds the conversation so a ticket with no
// messages yet still yields a prompt.
func conversation(ticket *domain.Ticket, history []domain.Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{
		Role:    llm.RoleUser,
		Content: ticket.Title + "\n\n" + ticket.Description,
	})
	for _, m := range history {
		role := llm.RoleUser
		if m.IsAI {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return msgs
}

// Recv returns the next fragment. On the provider's completion signal
// it persists the assembled reply as one AI message and returns
// io.EOF. Any upstream failure discards the partial text and returns
// UpstreamUnavailable; nothing partial is ever stored.
func (r *ReplyStream) Recv() (string, error) {
	if r.done {
		return "", io.EOF
	}

	fragment, err := r.upstream.Recv()
	if err == nil {
		r.assembly.WriteString(fragment)
		return fragment, nil
	}

	r.done = true
	if err != io.EOF {
		return "", apperrors.NewUpstreamUnavailable(err)
	}

	msg := &domain.Message{
		TicketID: r.ticket.ID,
		Content:  r.assembly.String(),
		IsAI:     true,
	}
	if err := r.svc.messages.Create(r.ctx, msg); err != nil {
		return "", apperrors.ToDomainError(err)
	}
	r.saved = msg

	if r.svc.dispatcher != nil {
		_ = r.svc.dispatcher.Publish(r.ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAIReplyStored,
			TicketID:  r.ticket.ID,
			UserID:    r.userID,
			Timestamp: time.Now(),
			Payload: events.MessageAddedPayload{
				MessageID:   msg.ID,
				IsAI:        true,
				BodyPreview: bodyPreview(msg.Content),
			},
		})
	}
	return "", io.EOF
}

// Message returns the persisted AI reply. Nil until Recv has returned
// io.EOF.
func (r *ReplyStream) Message() *domain.Message {
	return r.saved
}

// Close cancels the upstream call if it is still running and releases
// the per-ticket guard. Safe to call more than once.
func (r *ReplyStream) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.cancel()
	_ = r.upstream.Close()
	r.svc.releaseGuard(r.ticket.ID)
}

// releaseGuard uses a fresh context: the request context is usually
// already canceled by the time a stream is closed.
func (s *ReplyService) releaseGuard(ticketID string) {
	if s.guard == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.guard.Release(ctx, ticketID)
}
