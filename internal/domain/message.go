package domain

import "time"

// Message is one utterance in a ticket's conversation, written either
// by the ticket owner or by the assistant.
type Message struct {
	ID        string
	TicketID  string
	Content   string
	IsAI      bool
	CreatedAt time.Time
}
