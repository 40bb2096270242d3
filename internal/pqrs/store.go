package pqrs

import (
	"context"
	"time"
)

// Filter narrows List results. Zero values mean "no constraint".
// Search matches subject or description case-insensitively. OverdueAsOf
// restricts results to unresolved tickets whose deadline has passed at
// that instant.
type Filter struct {
	Type        Type
	Status      Status
	Priority    Priority
	CreatedBy   string
	AssignedTo  string
	Search      string
	OverdueAsOf time.Time
	Limit       int
	Offset      int
}

// Store persists tickets and their status history.
type Store interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id string) (*Ticket, error)
	List(ctx context.Context, f Filter) ([]*Ticket, int, error)
	Update(ctx context.Context, t *Ticket) error
	Delete(ctx context.Context, id string) error
	SetAssignee(ctx context.Context, id, assignee string) error

	// ChangeStatus updates the ticket status and appends the history entry
	// in one atomic step.
	ChangeStatus(ctx context.Context, id string, entry HistoryEntry) error
	History(ctx context.Context, ticketID string) ([]HistoryEntry, error)
}
