package pqrs

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("pqrs: ticket not found")
	ErrInvalidInput = errors.New("pqrs: invalid input")
)

// Type classifies a ticket by the kind of request it carries.
type Type string

const (
	TypePeticion   Type = "peticion"
	TypeQueja      Type = "queja"
	TypeReclamo    Type = "reclamo"
	TypeSugerencia Type = "sugerencia"
)

func (t Type) Valid() bool {
	switch t {
	case TypePeticion, TypeQueja, TypeReclamo, TypeSugerencia:
		return true
	}
	return false
}

// Priority orders tickets for attention.
type Priority string

const (
	PriorityBaja    Priority = "baja"
	PriorityMedia   Priority = "media"
	PriorityAlta    Priority = "alta"
	PriorityCritica Priority = "critica"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityBaja, PriorityMedia, PriorityAlta, PriorityCritica:
		return true
	}
	return false
}

// Status tracks a ticket through its lifecycle. Any transition between
// valid statuses is allowed; every change is recorded in the history.
type Status string

const (
	StatusRecibida  Status = "recibida"
	StatusEnProceso Status = "en_proceso"
	StatusResuelta  Status = "resuelta"
	StatusCerrada   Status = "cerrada"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRecibida, StatusEnProceso, StatusResuelta, StatusCerrada:
		return true
	}
	return false
}

// Ticket is a PQRS case filed by or on behalf of a requester.
// AssignedTo is empty while the ticket is unassigned.
type Ticket struct {
	ID                string    `json:"id"`
	Type              Type      `json:"type"`
	Subject           string    `json:"subject"`
	Description       string    `json:"description"`
	Priority          Priority  `json:"priority"`
	Status            Status    `json:"status"`
	RequesterName     string    `json:"requester_name"`
	RequesterEmail    string    `json:"requester_email"`
	RequesterPhone    string    `json:"requester_phone,omitempty"`
	RequesterDocument string    `json:"requester_document,omitempty"`
	CreatedBy         string    `json:"created_by"`
	AssignedTo        string    `json:"assigned_to,omitempty"`
	Deadline          time.Time `json:"deadline"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HistoryEntry records one status change. The history is append-only.
type HistoryEntry struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	OldStatus Status    `json:"old_status"`
	NewStatus Status    `json:"new_status"`
	Comment   string    `json:"comment,omitempty"`
	ChangedBy string    `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}
