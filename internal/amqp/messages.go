package amqp

import (
	"encoding/json"
	"time"
)

// Record kinds carried in event messages.
const (
	KindExpense = "expense"
	KindIncome  = "income"
)

// Actions carried in event messages.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// RecordEventMessage notifies consumers that a financial record changed.
// The worker resolves the full record from storage by ID, so the payload
// stays small and stable across schema changes.
type RecordEventMessage struct {
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(kind, action, id string) RecordEventMessage {
	return RecordEventMessage{
		Kind:      kind,
		Action:    action,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (m RecordEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordEventFromJSON(data []byte) (RecordEventMessage, error) {
	var m RecordEventMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
