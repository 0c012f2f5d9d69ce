package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"expenses/internal/core"
	applog "expenses/internal/log"
)

var errMissingToken = errors.New("missing bearer token")

type identityKey struct{}

// IdentityFrom returns the identity resolved by RequireIdentity.
func IdentityFrom(ctx context.Context) (core.Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(core.Identity)
	return ident, ok
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(tok), nil
}

// RequireIdentity rejects requests without a valid bearer token and stores
// the caller's identity in the request context.
func (s *Server) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearerToken(r)
		if err != nil {
			writeError(w, r, applog.OpAuthorize, err)
			return
		}

		ident, err := s.auth.Authorize(r.Context(), tok)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Authorization failed", applog.FieldError, err)
			writeError(w, r, applog.OpAuthorize, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, ident)
		logger := applog.FromContext(ctx).With(applog.NewFields().WithUser(ident.ID).ToSlice()...)
		ctx = applog.NewContext(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
