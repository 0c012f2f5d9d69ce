package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"
	"expenses/internal/services"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks request bodies that could not be decoded at all.
var errBadRequest = errors.New("malformed request body")

// ListParams holds the parsed query string of a ledger listing.
type ListParams struct {
	Filter core.Filter
	Page   int
	Limit  int
}

// ParseListParams reads page, limit, category, start_date and end_date.
// Absent page and limit take the given defaults; range checks are left to
// the ledger engine.
func ParseListParams(query url.Values, defaultLimit int) (ListParams, error) {
	p := ListParams{Page: 1, Limit: defaultLimit}

	var err error
	if p.Page, err = intParam(query, "page", 1); err != nil {
		return ListParams{}, err
	}
	if p.Limit, err = intParam(query, "limit", defaultLimit); err != nil {
		return ListParams{}, err
	}

	p.Filter.Category = sanitizeInput(query.Get("category"))
	if p.Filter.Start, err = dateParam(query, "start_date"); err != nil {
		return ListParams{}, err
	}
	if p.Filter.End, err = dateParam(query, "end_date"); err != nil {
		return ListParams{}, err
	}

	return p, nil
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		reason := core.ErrInvalidLimit
		if key == "page" {
			reason = core.ErrInvalidPage
		}
		return 0, core.Invalid(key, reason)
	}
	return n, nil
}

func dateParam(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(key, err)
	}
	return d, nil
}

// ParseExpenseID reads the {id} path segment.
func ParseExpenseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		// A malformed id cannot name an existing expense.
		return 0, core.ErrNotFound
	}
	return id, nil
}

// expenseRequest is the wire form of an expense body. Amount and date are
// kept raw so that their errors name the offending field.
type expenseRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	Description *string         `json:"description"`
	Date        string          `json:"date"`
}

// DecodeExpenseInput decodes and field-checks an expense body.
func DecodeExpenseInput(r *http.Request) (services.ExpenseInput, error) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		return services.ExpenseInput{}, err
	}

	var in services.ExpenseInput
	if len(req.Amount) == 0 || string(req.Amount) == "null" {
		return services.ExpenseInput{}, core.Invalid("amount", core.ErrInvalidAmount)
	}
	if err := in.Amount.UnmarshalJSON(req.Amount); err != nil {
		return services.ExpenseInput{}, core.Invalid("amount", core.ErrInvalidAmount)
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		return services.ExpenseInput{}, core.Invalid("date", err)
	}
	in.Date = date

	in.Category = sanitizeInput(req.Category)
	if req.Description != nil {
		in.Description = sanitizeInput(*req.Description)
	}
	return in, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// RequestBodyParser reads a body that may be JSON or form-encoded. Login
// accepts both so OAuth2 password-grant clients work unchanged.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errBadRequest, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if s, ok := p.jsonData[key].(string); ok {
			return s
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
