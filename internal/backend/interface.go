package backend

import (
	"context"

	"expenses/internal/ports"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Check probes one dependency of the backend.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Result is a ready-to-use store plus the optional event publisher.
type Result struct {
	Store ports.Store
	// Publisher is nil when event publishing is disabled.
	Publisher ports.EventPublisher
	Checks    []Check
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Event publishing, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
