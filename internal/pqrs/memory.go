package pqrs

import (
	"context"
	"strings"
	"sync"
	"time"

	"pqrs.org/internal/ids"
)

// MemoryStore keeps tickets in process memory. Used by tests and by local
// development when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
	order   []string
	history map[string][]HistoryEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the store's time source.
func WithMemoryClock(fn func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		tickets: make(map[string]*Ticket),
		history: make(map[string][]HistoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(ctx context.Context, t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tickets[t.ID] = cloneTicket(t)
	s.order = append(s.order, t.ID)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(t), nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Ticket, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Ticket
	for _, id := range s.order {
		t := s.tickets[id]
		if !matches(t, f) {
			continue
		}
		matched = append(matched, t)
	}
	total := len(matched)

	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && offset+f.Limit < end {
		end = offset + f.Limit
	}
	out := make([]*Ticket, 0, end-offset)
	for _, t := range matched[offset:end] {
		out = append(out, cloneTicket(t))
	}
	return out, total, nil
}

func matches(t *Ticket, f Filter) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Subject), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	if !f.OverdueAsOf.IsZero() {
		if !t.Deadline.Before(f.OverdueAsOf) {
			return false
		}
		if t.Status == StatusResuelta || t.Status == StatusCerrada {
			return false
		}
	}
	return true
}

func (s *MemoryStore) Update(ctx context.Context, t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[t.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneTicket(t)
	updated.CreatedAt = stored.CreatedAt
	updated.CreatedBy = stored.CreatedBy
	updated.Status = stored.Status
	updated.UpdatedAt = s.now().UTC()
	s.tickets[t.ID] = updated
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return ErrNotFound
	}
	delete(s.tickets, id)
	delete(s.history, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) SetAssignee(ctx context.Context, id, assignee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	t.AssignedTo = assignee
	t.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) ChangeStatus(ctx context.Context, id string, entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	entry.TicketID = id
	entry.CreatedAt = s.now().UTC()
	t.Status = entry.NewStatus
	t.UpdatedAt = entry.CreatedAt
	s.history[id] = append(s.history[id], entry)
	return nil
}

func (s *MemoryStore) History(ctx context.Context, ticketID string) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tickets[ticketID]; !ok {
		return nil, ErrNotFound
	}
	entries := s.history[ticketID]
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func cloneTicket(t *Ticket) *Ticket {
	out := *t
	return &out
}
