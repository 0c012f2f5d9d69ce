// Package token issues and validates signed, time-bounded identity claims.
//
// Tokens are stateless HS256 JWTs: nothing is stored server side, so a token
// stays valid until its embedded expiry.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"expenses/internal/core"
)

// MinSecretLength is the shortest accepted HMAC key, in bytes.
const MinSecretLength = 32

// Claims represents the JWT claims structure.
type Claims struct {
	jwt.RegisteredClaims
}

// SubjectID returns the identity id encoded in the subject claim.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// Token is an issued access token with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Config holds configuration for the token service.
type Config struct {
	// Secret is the HMAC signing key, loaded once per process.
	Secret string

	// TTL is the fixed token lifetime.
	TTL time.Duration

	// Issuer is written to and required in the iss claim when set.
	Issuer string
}

// Service handles token generation and validation. It performs no I/O.
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	method jwt.SigningMethod
}

// NewService creates a new token service.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Service{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		method: jwt.SigningMethodHS256,
	}, nil
}

// Issue signs a token for identity expiring at now + TTL.
func (s *Service) Issue(identity core.Identity, now time.Time) (Token, error) {
	if identity.ID <= 0 {
		return Token{}, errors.New("cannot issue token for unsaved identity")
	}
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Validate verifies the signature first, then requires exp > now.
func (s *Service) Validate(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.SubjectID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// mapJWTError maps JWT library errors to our error types. Only an expired
// token with a valid signature is reported as expired.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}
