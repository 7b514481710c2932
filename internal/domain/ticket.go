package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is one support conversation. The owner is fixed at creation
// and never transferred.
type Ticket struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
}
