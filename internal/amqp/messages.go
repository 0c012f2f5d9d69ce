package amqp

import (
	"encoding/json"
	"time"

	"expenses/internal/core"
)

// ExpenseEvent is published after an expense mutation has been persisted.
// Consumers fetch the current state by id if they need more than the
// summary fields carried here.
type ExpenseEvent struct {
	Kind        string    `json:"kind"`
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"user_id"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseEvent builds an event of kind for e, stamped with the current time.
func NewExpenseEvent(kind string, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Kind:        kind,
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		AmountCents: e.Amount.Cents(),
		Category:    e.Category,
		Date:        e.Date.String(),
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
