package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pqrs.org/internal/ids"
)

// MemoryStore implements UserStore and RoleStore in process memory.
// Used by tests and by local development when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
	order []string
	roles map[string]*Role
	now   func() time.Time
}

var (
	_ UserStore = (*MemoryStore)(nil)
	_ RoleStore = (*MemoryStore)(nil)
)

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

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users: make(map[string]*User),
		roles: make(map[string]*Role),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddRole registers a role in the catalog, assigning an ID when missing.
func (s *MemoryStore) AddRole(role Role) Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role.ID == "" {
		role.ID = ids.New()
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = s.now().UTC()
	}
	role.UpdatedAt = role.CreatedAt
	s.roles[role.ID] = cloneRole(&role)
	return role
}

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateIdentity
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = cloneUser(u)
	s.order = append(s.order, u.ID)
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.withRole(u), nil
}

func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return s.withRole(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return s.withRole(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.GetByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if err == ErrNotFound {
		return false, nil
	}
	return false, err
}

func (s *MemoryStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if err == ErrNotFound {
		return false, nil
	}
	return false, err
}

func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.order)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]*User, 0, end-offset)
	for _, id := range s.order[offset:end] {
		out = append(out, s.withRole(s.users[id]))
	}
	return out, total, nil
}

func (s *MemoryStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateIdentity
		}
	}
	updated := cloneUser(u)
	updated.PasswordHash = stored.PasswordHash
	updated.CreatedAt = stored.CreatedAt
	updated.LastLoginAt = stored.LastLoginAt
	updated.UpdatedAt = s.now().UTC()
	s.users[u.ID] = updated
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) SetActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) UpdateLastLogin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	ts := s.now().UTC()
	u.LastLoginAt = &ts
	return nil
}

func (s *MemoryStore) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, role := range s.roles {
		if role.Name == name {
			return cloneRole(role), nil
		}
	}
	return nil, fmt.Errorf("%w: role %s", ErrNotFound, name)
}

func (s *MemoryStore) GetRole(ctx context.Context, id string) (*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRole(role), nil
}

// ListRoles returns the role catalog.
func (s *MemoryStore) ListRoles(ctx context.Context) ([]*Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, cloneRole(role))
	}
	return out, nil
}

// withRole returns a copy of the user with the current role catalog entry
// attached, mirroring the eager load contract of the SQL store.
func (s *MemoryStore) withRole(u *User) *User {
	out := cloneUser(u)
	if role, ok := s.roles[u.Role.ID]; ok {
		out.Role = *cloneRole(role)
	}
	return out
}

func cloneUser(u *User) *User {
	out := *u
	out.Role = *cloneRole(&u.Role)
	if u.LastLoginAt != nil {
		ts := *u.LastLoginAt
		out.LastLoginAt = &ts
	}
	return &out
}

func cloneRole(r *Role) *Role {
	out := *r
	if len(r.Permissions) > 0 {
		out.Permissions = make([]Permission, len(r.Permissions))
		copy(out.Permissions, r.Permissions)
	}
	return &out
}
