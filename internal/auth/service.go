// Package auth implements registration, credential checks and token-based
// identification on top of an identity store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/password"
	"expenses/internal/ports"
	"expenses/internal/token"
)

// bcrypt silently ignores anything past 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

// fallbackDigest is a well-formed bcrypt digest at the default cost, used for
// unknown-email verification when the hasher cannot produce one.
const fallbackDigest = "$2a$12$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW"

// RegisterRequest carries the fields of a new identity.
type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Service orchestrates the credential and token lifecycle.
type Service struct {
	store  ports.IdentityStore
	hasher password.Hasher
	tokens *token.Service
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store ports.IdentityStore, hasher password.Hasher, tokens *token.Service, opts ...Option) *Service {
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates req, hashes the password and stores a new identity.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (core.Identity, error) {
	ident := core.Identity{
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if err := ident.Validate(); err != nil {
		return core.Identity{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return core.Identity{}, err
	}

	if _, err := s.store.FindIdentityByEmail(ctx, ident.Email); err == nil {
		return core.Identity{}, core.ErrDuplicateEmail
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Identity{}, core.StorageFailure("find identity", err)
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return core.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	ident.PasswordHash = digest
	ident.CreatedAt = s.now().UTC()

	// The store enforces uniqueness again for concurrent registrations.
	saved, err := s.store.InsertIdentity(ctx, ident)
	if err != nil {
		return core.Identity{}, core.StorageFailure("insert identity", err)
	}

	slog.InfoContext(ctx, "Identity registered", "user_id", saved.ID)
	return saved, nil
}

// Authenticate returns the identity whose email and password match. Unknown
// email and wrong password both yield core.ErrInvalidCredentials after a
// comparable amount of hashing work.
func (s *Service) Authenticate(ctx context.Context, email, plaintext string) (core.Identity, error) {
	ident, err := s.store.FindIdentityByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, core.ErrNotFound) {
		s.hasher.Verify(plaintext, s.dummyDigest())
		return core.Identity{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.Identity{}, core.StorageFailure("find identity", err)
	}

	if !s.hasher.Verify(plaintext, ident.PasswordHash) {
		return core.Identity{}, core.ErrInvalidCredentials
	}
	return ident, nil
}

// Login authenticates and issues a token for the identity.
func (s *Service) Login(ctx context.Context, email, plaintext string) (token.Token, error) {
	ident, err := s.Authenticate(ctx, email, plaintext)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			slog.WarnContext(ctx, "Login failed")
		}
		return token.Token{}, err
	}

	tok, err := s.tokens.Issue(ident, s.now())
	if err != nil {
		return token.Token{}, err
	}

	slog.InfoContext(ctx, "Login succeeded", "user_id", ident.ID, "expires_at", tok.ExpiresAt)
	return tok, nil
}

// Authorize validates tokenString and resolves its subject. A verified token
// whose identity no longer exists yields core.ErrUnknownSubject.
func (s *Service) Authorize(ctx context.Context, tokenString string) (core.Identity, error) {
	claims, err := s.tokens.Validate(tokenString, s.now())
	if err != nil {
		return core.Identity{}, err
	}
	id, err := claims.SubjectID()
	if err != nil {
		return core.Identity{}, err
	}

	ident, err := s.store.FindIdentityByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Identity{}, core.ErrUnknownSubject
	}
	if err != nil {
		return core.Identity{}, core.StorageFailure("find identity", err)
	}
	return ident, nil
}

func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			slog.Warn("Falling back to built-in dummy digest", "error", err)
			digest = fallbackDigest
		}
		s.dummyHash = digest
	})
	return s.dummyHash
}

func validatePassword(pw string) error {
	if pw == "" {
		return core.Invalid("password", core.ErrEmptyPassword)
	}
	if len(pw) > maxPasswordBytes {
		return core.Invalid("password", core.ErrPasswordTooLong)
	}
	return nil
}
