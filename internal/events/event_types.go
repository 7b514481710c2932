package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventMessageAdded  EventType = "message_added"
	EventAIReplyStored EventType = "ai_reply_stored"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title string `json:"title"`
}

// MessageAddedPayload payload.
type MessageAddedPayload struct {
	MessageID   string `json:"message_id"`
	IsAI        bool   `json:"is_ai"`
	BodyPreview string `json:"body_preview"`
}
