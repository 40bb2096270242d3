package auth

import (
	"context"
	"errors"
)

// Resolver maps a verified access token to the current user record.
// The user is re-read on every resolution so role and permission changes
// take effect immediately, not at token-issue time.
type Resolver struct {
	tokens *TokenService
	users  UserStore
}

// NewResolver constructs a Resolver.
func NewResolver(tokens *TokenService, users UserStore) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve verifies raw as an access token and loads the subject's user
// record with role and permissions. A missing user is reported as
// ErrInvalidCredentials, indistinguishable from a bad token.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*User, error) {
	claims, err := r.tokens.Verify(raw, TokenTypeAccess)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := r.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// ResolveActive resolves the token and additionally rejects inactive accounts.
func (r *Resolver) ResolveActive(ctx context.Context, raw string) (*User, error) {
	user, err := r.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveAccount
	}
	return user, nil
}
