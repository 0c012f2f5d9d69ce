package http

import (
	"net/http"

	"expenses/internal/auth"
	applog "expenses/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpRegister, err)
		return
	}

	ident, err := s.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, applog.OpRegister, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "User registered successfully",
		User:    ident,
	})
}

// handleLogin accepts {"email","password"} JSON or an OAuth2 password-grant
// form with username and password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}

	email := p.Get("email")
	if email == "" && !p.IsJSON() {
		email = p.Get("username")
	}

	tok, err := s.auth.Login(r.Context(), email, p.Get("password"))
	if err != nil {
		writeError(w, r, applog.OpLogin, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: tok.Value,
		TokenType:   "bearer",
		ExpiresAt:   tok.ExpiresAt.Unix(),
	})
}
