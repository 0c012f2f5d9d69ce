package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/config"
	"expenses/internal/core"
)

type fakePublisher struct {
	closed bool
}

func (p *fakePublisher) PublishExpenseEvent(context.Context, string, core.Expense) error { return nil }
func (p *fakePublisher) Ping() error                                                   { return nil }
func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func newTestFactory(dial func(ctx context.Context, url, exchange, queue string) (publisher, error)) *DefaultFactory {
	f := NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil))).(*DefaultFactory)
	if dial != nil {
		f.dial = dial
	}
	return f
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "sheets"}, true},
		{"amqp without exchange", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "postgres"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "a.db", AMQPExchange: "expenses"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "a.db", cfg.SQLiteDBPath)
	assert.ElementsMatch(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := newTestFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)

	assert.NotNil(t, res.Store)
	assert.Nil(t, res.Publisher)
	assert.Empty(t, res.Checks)
	assert.Nil(t, res.Cleanup)
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	res, err := newTestFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	require.Len(t, res.Checks, 1)
	assert.Equal(t, "sqlite", res.Checks[0].Name)
	assert.NoError(t, res.Checks[0].Ping(context.Background()))

	ident, err := res.Store.InsertIdentity(context.Background(), core.Identity{
		Email: "a@x.com", FirstName: "A", LastName: "B", PasswordHash: "h",
	})
	require.NoError(t, err)
	assert.NotZero(t, ident.ID)
}

func TestPublisherAttached(t *testing.T) {
	fake := &fakePublisher{}
	f := newTestFactory(func(ctx context.Context, url, exchange, queue string) (publisher, error) {
		assert.Equal(t, "expenses", exchange)
		return fake, nil
	})

	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "expenses", AMQPQueue: "q",
	})
	require.NoError(t, err)

	assert.Same(t, fake, res.Publisher)
	require.Len(t, res.Checks, 1)
	assert.Equal(t, "amqp", res.Checks[0].Name)
	require.NotNil(t, res.Cleanup)
	require.NoError(t, res.Cleanup())
	assert.True(t, fake.closed)
}

func TestUnreachableBrokerDisablesPublishing(t *testing.T) {
	f := newTestFactory(func(context.Context, string, string, string) (publisher, error) {
		return nil, errors.New("connection refused")
	})

	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "expenses",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Publisher, "publisher must be a nil interface")
	assert.Empty(t, res.Checks)
}
