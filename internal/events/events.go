// Package events announces ledger changes to other systems.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
	IncomeCreated  Type = "income.created"
	IncomeUpdated  Type = "income.updated"
	IncomeDeleted  Type = "income.deleted"
)

// Event carries identifiers only; consumers read the row if they need it.
type Event struct {
	Type      Type      `json:"type"`
	EntityID  int64     `json:"entity_id"`
	OwnerID   int64     `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

func New(t Type, entityID, ownerID int64, now time.Time) Event {
	return Event{
		Type:      t,
		EntityID:  entityID,
		OwnerID:   ownerID,
		Timestamp: now.UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
