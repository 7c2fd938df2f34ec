package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// SnapshotRefreshed announces that a new customer/transaction snapshot has
// been written and readers should reload.
type SnapshotRefreshed struct {
	Source       string    `json:"source"`
	Customers    int       `json:"customers"`
	Transactions int       `json:"transactions"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewSnapshotRefreshed(source string, customers, transactions int) *SnapshotRefreshed {
	return &SnapshotRefreshed{
		Source:       source,
		Customers:    customers,
		Transactions: transactions,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotRefreshed) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRefreshedFromJSON decodes a message. Counts must not be negative.
func SnapshotRefreshedFromJSON(data []byte) (*SnapshotRefreshed, error) {
	var msg SnapshotRefreshed
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Customers < 0 || msg.Transactions < 0 {
		return nil, errors.New("negative record count")
	}
	return &msg, nil
}
