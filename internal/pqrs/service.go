package pqrs

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	minDeadlineDays     = 1
	maxDeadlineDays     = 90
	defaultDeadlineDays = 15
)

// Service implements ticket operations on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithServiceClock overrides the time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput holds the data to file a new ticket. DeadlineDays of zero
// takes the default response window.
type CreateInput struct {
	Type              Type
	Subject           string
	Description       string
	Priority          Priority
	RequesterName     string
	RequesterEmail    string
	RequesterPhone    string
	RequesterDocument string
	DeadlineDays      int
}

// Create validates the input and files the ticket in received state with a
// response deadline counted from now.
func (s *Service) Create(ctx context.Context, createdBy string, in CreateInput) (*Ticket, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidInput, in.Type)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedia
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	if in.Subject == "" || in.Description == "" {
		return nil, fmt.Errorf("%w: subject and description are required", ErrInvalidInput)
	}
	in.RequesterName = strings.TrimSpace(in.RequesterName)
	in.RequesterEmail = strings.TrimSpace(strings.ToLower(in.RequesterEmail))
	if in.RequesterName == "" || !strings.Contains(in.RequesterEmail, "@") {
		return nil, fmt.Errorf("%w: requester name and valid email are required", ErrInvalidInput)
	}
	days := in.DeadlineDays
	if days == 0 {
		days = defaultDeadlineDays
	}
	if days < minDeadlineDays || days > maxDeadlineDays {
		return nil, fmt.Errorf("%w: deadline must be between %d and %d days",
			ErrInvalidInput, minDeadlineDays, maxDeadlineDays)
	}

	t := &Ticket{
		Type:              in.Type,
		Subject:           in.Subject,
		Description:       in.Description,
		Priority:          in.Priority,
		Status:            StatusRecibida,
		RequesterName:     in.RequesterName,
		RequesterEmail:    in.RequesterEmail,
		RequesterPhone:    strings.TrimSpace(in.RequesterPhone),
		RequesterDocument: strings.TrimSpace(in.RequesterDocument),
		CreatedBy:         createdBy,
		Deadline:          s.now().UTC().AddDate(0, 0, days),
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Ticket, int, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidInput, f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, f.Priority)
	}
	return s.store.List(ctx, f)
}

// ListByCreator returns tickets filed by the given user.
func (s *Service) ListByCreator(ctx context.Context, userID string, limit, offset int) ([]*Ticket, int, error) {
	return s.store.List(ctx, Filter{CreatedBy: userID, Limit: limit, Offset: offset})
}

// ListByAssignee returns tickets assigned to the given user.
func (s *Service) ListByAssignee(ctx context.Context, userID string, limit, offset int) ([]*Ticket, int, error) {
	return s.store.List(ctx, Filter{AssignedTo: userID, Limit: limit, Offset: offset})
}

// ListOverdue returns open tickets whose response deadline has passed.
// Resolved and closed tickets are never overdue.
func (s *Service) ListOverdue(ctx context.Context, limit, offset int) ([]*Ticket, int, error) {
	return s.store.List(ctx, Filter{OverdueAsOf: s.now().UTC(), Limit: limit, Offset: offset})
}

// UpdateInput carries replacement field values for an existing ticket.
// Status and assignment are changed through their dedicated operations.
type UpdateInput struct {
	Type              Type
	Subject           string
	Description       string
	Priority          Priority
	RequesterName     string
	RequesterEmail    string
	RequesterPhone    string
	RequesterDocument string
	Deadline          time.Time
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Ticket, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidInput, in.Type)
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	if in.Subject == "" || in.Description == "" {
		return nil, fmt.Errorf("%w: subject and description are required", ErrInvalidInput)
	}

	t.Type = in.Type
	t.Subject = in.Subject
	t.Description = in.Description
	t.Priority = in.Priority
	t.RequesterName = strings.TrimSpace(in.RequesterName)
	t.RequesterEmail = strings.TrimSpace(strings.ToLower(in.RequesterEmail))
	t.RequesterPhone = strings.TrimSpace(in.RequesterPhone)
	t.RequesterDocument = strings.TrimSpace(in.RequesterDocument)
	if !in.Deadline.IsZero() {
		t.Deadline = in.Deadline
	}
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Assign sets or clears the ticket's assignee. The caller is responsible
// for checking that the assignee exists.
func (s *Service) Assign(ctx context.Context, id, assignee string) (*Ticket, error) {
	if err := s.store.SetAssignee(ctx, id, strings.TrimSpace(assignee)); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// ChangeStatus moves the ticket to the new status and records the change
// with the acting user and an optional comment.
func (s *Service) ChangeStatus(ctx context.Context, id string, next Status, comment, actor string) (*Ticket, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := HistoryEntry{
		TicketID:  id,
		OldStatus: t.Status,
		NewStatus: next,
		Comment:   strings.TrimSpace(comment),
		ChangedBy: actor,
	}
	if err := s.store.ChangeStatus(ctx, id, entry); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	return s.store.History(ctx, id)
}
