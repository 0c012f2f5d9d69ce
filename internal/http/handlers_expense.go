package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	applog "expenses/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	in, err := DecodeExpenseInput(r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	saved, err := s.expenses.CreateExpense(r.Context(), ident.ID, in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithExpense(saved.ID, saved.Amount.Cents(), saved.Category, saved.Date.String())
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created", fields.ToSlice()...)

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Expense added successfully", Expense: saved})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	params, err := ParseListParams(r.URL.Query(), s.defaultPageSize)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	page, err := s.ledger.Query(r.Context(), ident.ID, params.Filter, params.Page, params.Limit)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	summary, err := s.ledger.Summarize(r.Context(), ident.ID)
	if err != nil {
		writeError(w, r, applog.OpSummarize, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	id, err := ParseExpenseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}

	e, err := s.expenses.GetExpense(r.Context(), ident.ID, id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}

	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	id, err := ParseExpenseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	in, err := DecodeExpenseInput(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	updated, err := s.expenses.UpdateExpense(r.Context(), ident.ID, id, in)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Expense updated successfully", Expense: updated})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ident, _ := IdentityFrom(r.Context())

	id, err := ParseExpenseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), ident.ID, id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Expense deleted successfully"})
}
