package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultRoleName is assigned to self-registered accounts.
const DefaultRoleName = "Usuario"

// Service provides high level authentication operations: login, token
// refresh, registration and password management.
type Service struct {
	users  UserStore
	roles  RoleStore
	tokens *TokenService
	now    func() time.Time
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

// NewService constructs a Service.
func NewService(users UserStore, roles RoleStore, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if users == nil || roles == nil || tokens == nil {
		return nil, errors.New("auth: user store, role store and token service are required")
	}
	svc := &Service{users: users, roles: roles, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login authenticates by username or email and issues a token pair.
// The user's last-login timestamp is updated on success.
func (s *Service) Login(ctx context.Context, login, password string) (TokenPair, *User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, login)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return TokenPair{}, nil, err
		}
		user, err = s.users.GetByEmail(ctx, login)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return TokenPair{}, nil, ErrInvalidCredentials
			}
			return TokenPair{}, nil, err
		}
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return TokenPair{}, nil, ErrInactiveAccount
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return TokenPair{}, nil, err
	}

	pair, err := s.tokens.IssuePair(IdentityFromUser(user))
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The user record
// is re-read so the new access token carries current role and permissions.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, ErrInactiveAccount
	}
	return s.tokens.IssuePair(IdentityFromUser(user))
}

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	FullName       string
	DocumentType   string
	DocumentNumber string
	Phone          string
	Address        string
}

// Register validates the password policy, checks identity uniqueness and
// creates the account with the default role, active by default.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Username == "" || in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: username and valid email are required", ErrInvalidInput)
	}

	if ok, reason := ValidatePasswordStrength(in.Password); !ok {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, reason)
	}

	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: username is already in use", ErrDuplicateIdentity)
	}
	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email is already registered", ErrDuplicateIdentity)
	}

	role, err := s.roles.GetRoleByName(ctx, DefaultRoleName)
	if err != nil {
		return nil, fmt.Errorf("default role lookup: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   hash,
		FullName:       strings.TrimSpace(in.FullName),
		DocumentType:   strings.TrimSpace(in.DocumentType),
		DocumentNumber: strings.TrimSpace(in.DocumentNumber),
		Phone:          strings.TrimSpace(in.Phone),
		Address:        strings.TrimSpace(in.Address),
		IsActive:       true,
		Role:           *role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password and replaces the hash after
// the new password clears the policy.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, user.ID, next)
}

// ResetPassword replaces a user's password without the current one.
// Restricted to administrators by the calling layer.
func (s *Service) ResetPassword(ctx context.Context, userID, next string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, next)
}

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	if ok, reason := ValidatePasswordStrength(password); !ok {
		return fmt.Errorf("%w: %s", ErrWeakPassword, reason)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

// UsernameAvailable reports whether the username is free.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.users.ExistsByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// EmailAvailable reports whether the email is free.
func (s *Service) EmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.users.ExistsByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return false, err
	}
	return !taken, nil
}
