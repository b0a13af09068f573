package transaction

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	TopicCreated = "transaction.created"
	TopicUpdated = "transaction.updated"
)

// Publisher sends messages to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Snapshot is the part of a transaction that feeds report totals.
type Snapshot struct {
	Type   Type            `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

// Event is published on TopicCreated and TopicUpdated. Previous is set on
// updates so consumers can reverse the old contribution.
type Event struct {
	TransactionID int64           `json:"transactionId"`
	UserID        string          `json:"userId"`
	Type          Type            `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Date          string          `json:"date"`
	Previous      *Snapshot       `json:"previous,omitempty"`
}

// Current returns the snapshot of the event's new values.
func (e Event) Current() Snapshot {
	return Snapshot{Type: e.Type, Amount: e.Amount, Date: e.Date}
}

func eventFrom(t *Transaction) Event {
	return Event{
		TransactionID: t.ID,
		UserID:        t.UserID,
		Type:          t.Type,
		Amount:        t.Amount,
		Category:      t.Category,
		Date:          t.Date,
	}
}
