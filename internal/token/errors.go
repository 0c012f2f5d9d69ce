package token

import "errors"

// Token-related errors.
var (
	// ErrTokenInvalid covers a bad signature, an unexpected algorithm and a
	// malformed payload.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired indicates the signature verified but the expiry has passed.
	ErrTokenExpired = errors.New("token has expired")

	// ErrWeakSecret rejects signing keys shorter than MinSecretLength.
	ErrWeakSecret = errors.New("signing secret is too short")
)
