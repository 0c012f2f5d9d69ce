package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"expenses/internal/auth"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
	"expenses/internal/password"
	"expenses/internal/services"
	"expenses/internal/storage/memory"
	"expenses/internal/token"
)

type testEnv struct {
	srv   *Server
	store *memory.Store
	clock *time.Time
}

func newTestEnv(t *testing.T, rpm int, ready ...ReadinessCheck) *testEnv {
	t.Helper()

	clock := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	env := &testEnv{store: memory.New(), clock: &clock}

	tokens, err := token.NewService(token.Config{Secret: strings.Repeat("s", 32), TTL: time.Hour})
	require.NoError(t, err)

	authSvc := auth.NewService(env.store, password.NewBcryptHasher(bcrypt.MinCost), tokens,
		auth.WithClock(func() time.Time { return *env.clock }))

	env.srv = NewServer(":0", Deps{
		Auth:     authSvc,
		Expenses: services.NewExpenseService(env.store, nil),
		Ledger:   ledger.NewEngine(env.store, 50),
		Logger:   applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard}),
		Ready:    ready,
	}, Options{DefaultPageSize: 5, RateLimitRPM: rpm})
	t.Cleanup(func() { _ = env.srv.Shutdown(context.Background()) })

	return env
}

func (e *testEnv) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) registerAndLogin(t *testing.T, email, pw string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/register",
		fmt.Sprintf(`{"email":%q,"first_name":"Ada","last_name":"Lovelace","password":%q}`, email, pw), "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/login", fmt.Sprintf(`{"email":%q,"password":%q}`, email, pw), "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func (e *testEnv) addExpense(t *testing.T, tok, amount, category, date string) int64 {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/expenses",
		fmt.Sprintf(`{"amount":%s,"category":%q,"date":%q}`, amount, category, date), tok)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp struct {
		Expense struct {
			ID int64 `json:"id"`
		} `json:"expense"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Expense.ID
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

type listResponse struct {
	Total    int `json:"total"`
	Expenses []struct {
		ID       int64           `json:"id"`
		Amount   json.RawMessage `json:"amount"`
		Category string          `json:"category"`
		Date     string          `json:"date"`
	} `json:"expenses"`
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, 100)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	}

	failing := newTestEnv(t, 100, ReadinessCheck{Name: "storage", Check: func(context.Context) error {
		return errors.New("database is locked")
	}})
	rr := failing.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "database is locked")
}

func TestRegisterLoginAndAnalyticsScenario(t *testing.T) {
	env := newTestEnv(t, 100)
	tok := env.registerAndLogin(t, "a@x.com", "pw1")

	rr := env.do(t, http.MethodPost, "/register",
		`{"email":"a@x.com","first_name":"B","last_name":"C","password":"pw2"}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Email already registered", decodeError(t, rr).Detail)

	rr = env.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	wrongPassword := decodeError(t, rr)

	rr = env.do(t, http.MethodPost, "/login", `{"email":"nobody@x.com","password":"pw1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, wrongPassword, decodeError(t, rr), "unknown email and wrong password must look the same")

	env.addExpense(t, tok, "12.50", "food", "2024-03-05")
	env.addExpense(t, tok, "7.00", "food", "2024-04-01")

	rr = env.do(t, http.MethodGet, "/expenses/analytics", "", tok)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var summary struct {
		Total        json.RawMessage `json:"total"`
		CategoryWise []struct {
			Category string          `json:"category"`
			Amount   json.RawMessage `json:"amount"`
		} `json:"categoryWise"`
		MonthlyTrend []struct {
			Month  string          `json:"month"`
			Amount json.RawMessage `json:"amount"`
		} `json:"monthlyTrend"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))

	assert.Equal(t, "19.50", string(summary.Total))
	require.Len(t, summary.CategoryWise, 1)
	assert.Equal(t, "food", summary.CategoryWise[0].Category)
	assert.Equal(t, "19.50", string(summary.CategoryWise[0].Amount))
	require.Len(t, summary.MonthlyTrend, 2)
	assert.Equal(t, "2024-03", summary.MonthlyTrend[0].Month)
	assert.Equal(t, "12.50", string(summary.MonthlyTrend[0].Amount))
	assert.Equal(t, "2024-04", summary.MonthlyTrend[1].Month)
	assert.Equal(t, "7.00", string(summary.MonthlyTrend[1].Amount))
}

func TestRegisterDoesNotExposeHash(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.do(t, http.MethodPost, "/register",
		`{"email":"a@x.com","first_name":"Ada","last_name":"Lovelace","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "$2")
	assert.NotContains(t, rr.Body.String(), "pw1")
	assert.Contains(t, rr.Body.String(), "User registered successfully")
}

func TestLoginWithPasswordGrantForm(t *testing.T) {
	env := newTestEnv(t, 100)
	env.registerAndLogin(t, "a@x.com", "pw1")

	form := url.Values{"username": {"a@x.com"}, "password": {"pw1"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "access_token")
}

func TestListPagination(t *testing.T) {
	env := newTestEnv(t, 100)
	tok := env.registerAndLogin(t, "a@x.com", "pw1")

	env.addExpense(t, tok, "1.00", "food", "2024-01-01")
	second := env.addExpense(t, tok, "2.00", "food", "2024-01-02")
	env.addExpense(t, tok, "3.00", "rent", "2024-01-03")

	rr := env.do(t, http.MethodGet, "/expenses?page=2&limit=1", "", tok)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var list listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	require.Len(t, list.Expenses, 1)
	assert.Equal(t, second, list.Expenses[0].ID)
	assert.Equal(t, "2.00", string(list.Expenses[0].Amount))

	rr = env.do(t, http.MethodGet, "/expenses?category=food&start_date=2024-01-02&end_date=2024-01-31", "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rr = env.do(t, http.MethodGet, "/expenses", "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Expenses, 3, "default limit is 5")

	for _, page := range []string{"1844674407370955163", "9223372036854775807"} {
		rr = env.do(t, http.MethodGet, "/expenses?limit=10&page="+page, "", tok)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		list = listResponse{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		assert.Equal(t, 3, list.Total)
		assert.NotNil(t, list.Expenses)
		assert.Empty(t, list.Expenses, "page %s lies past the end", page)
	}

	rr = env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code, "server still serving")
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t, 100)
	tok := env.registerAndLogin(t, "a@x.com", "pw1")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		field  string
	}{
		{"negative amount", http.MethodPost, "/expenses", `{"amount":-1,"category":"food","date":"2024-03-05"}`, 422, "amount"},
		{"text amount", http.MethodPost, "/expenses", `{"amount":"lots","category":"food","date":"2024-03-05"}`, 422, "amount"},
		{"missing amount", http.MethodPost, "/expenses", `{"category":"food","date":"2024-03-05"}`, 422, "amount"},
		{"amount beyond int64 cents", http.MethodPost, "/expenses", `{"amount":184467440737095516.17,"category":"food","date":"2024-03-05"}`, 422, "amount"},
		{"quoted null amount", http.MethodPost, "/expenses", `{"amount":"null","category":"food","date":"2024-03-05"}`, 422, "amount"},
		{"missing category", http.MethodPost, "/expenses", `{"amount":1,"date":"2024-03-05"}`, 422, "category"},
		{"bad date", http.MethodPost, "/expenses", `{"amount":1,"category":"food","date":"05/03/2024"}`, 422, "date"},
		{"malformed json", http.MethodPost, "/expenses", `{"amount":`, 400, ""},
		{"limit too large", http.MethodGet, "/expenses?limit=51", "", 422, "limit"},
		{"limit zero", http.MethodGet, "/expenses?limit=0", "", 422, "limit"},
		{"page zero", http.MethodGet, "/expenses?page=0", "", 422, "page"},
		{"page not a number", http.MethodGet, "/expenses?page=two", "", 422, "page"},
		{"inverted range", http.MethodGet, "/expenses?start_date=2024-05-01&end_date=2024-04-01", "", 422, "start_date"},
		{"bad start date", http.MethodGet, "/expenses?start_date=yesterday", "", 422, "start_date"},
		{"register bad email", http.MethodPost, "/register", `{"email":"nope","first_name":"A","last_name":"B","password":"pw"}`, 422, "email"},
		{"register empty password", http.MethodPost, "/register", `{"email":"b@x.com","first_name":"A","last_name":"B","password":""}`, 422, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, tt.method, tt.path, tt.body, tok)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.field, decodeError(t, rr).Field)
		})
	}
	assert.Equal(t, 0, env.store.Len(), "nothing invalid was stored")
}

func TestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t, 100)
	alice := env.registerAndLogin(t, "a@x.com", "pw1")
	bob := env.registerAndLogin(t, "b@x.com", "pw2")

	id := env.addExpense(t, alice, "12.50", "food", "2024-03-05")
	path := fmt.Sprintf("/expenses/%d", id)

	rr := env.do(t, http.MethodDelete, path, "", bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 1, env.store.Len(), "ledger unchanged")

	rr = env.do(t, http.MethodGet, path, "", bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPut, path, `{"amount":1,"category":"x","date":"2024-01-01"}`, bob)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/expenses", "", bob)
	var list listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Expenses)

	rr = env.do(t, http.MethodGet, path, "", alice)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"amount":12.50`)
}

func TestUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t, 100)
	tok := env.registerAndLogin(t, "a@x.com", "pw1")
	id := env.addExpense(t, tok, "12.50", "food", "2024-03-05")
	path := fmt.Sprintf("/expenses/%d", id)

	rr := env.do(t, http.MethodPut, path, `{"amount":"7,25","category":"rent","description":"april","date":"2024-04-01T10:30:00"}`, tok)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "Expense updated successfully")

	rr = env.do(t, http.MethodGet, path, "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, want := range []string{`"amount":7.25`, `"category":"rent"`, `"description":"april"`, `"date":"2024-04-01"`} {
		assert.Contains(t, body, want)
	}

	rr = env.do(t, http.MethodDelete, path, "", tok)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Expense deleted successfully")

	rr = env.do(t, http.MethodDelete, path, "", tok)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/expenses/not-a-number", "", tok)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t, 100)
	tok := env.registerAndLogin(t, "a@x.com", "pw1")

	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"missing header", "", "Invalid token"},
		{"wrong scheme", "Basic " + tok, "Invalid token"},
		{"garbage token", "Bearer not.a.jwt", "Invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			env.srv.Handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tt.detail, decodeError(t, rr).Detail)
		})
	}

	rr := env.do(t, http.MethodGet, "/expenses", "", tok)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExpiredToken(t *testing.T) {
	env := newTestEnv(t, 100)
	tok := env.registerAndLogin(t, "a@x.com", "pw1")

	*env.clock = env.clock.Add(59 * time.Minute)
	rr := env.do(t, http.MethodGet, "/expenses", "", tok)
	assert.Equal(t, http.StatusOK, rr.Code)

	*env.clock = env.clock.Add(2 * time.Minute)
	rr = env.do(t, http.MethodGet, "/expenses", "", tok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token has expired", decodeError(t, rr).Detail)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, 2)

	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"x"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr := env.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"x"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Ledger routes are not throttled by the auth limiter.
	rr = env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, 100)

	rr := env.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/login", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
