// Package transaction records income and expense entries and publishes a
// message for every change so reports can follow.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Type is the direction of a transaction.
type Type string

const (
	Income  Type = "INCOME"
	Expense Type = "EXPENSE"
)

// DateLayout is the layout of Transaction.Date.
const DateLayout = "2006-01-02"

// Transaction is the transaction model. Amount is stored as text to keep
// decimal precision in sqlite.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:trx"`

	ID          int64           `bun:"id,pk,autoincrement" json:"transactionId"`
	UserID      string          `bun:"user_id,notnull" json:"userId"`
	Type        Type            `bun:"type,notnull" json:"type"`
	Amount      decimal.Decimal `bun:"amount,type:varchar(32),notnull" json:"amount"`
	Category    string          `bun:"category,notnull" json:"category"`
	Date        string          `bun:"date,notnull" json:"date"`
	Description string          `bun:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
}

// Period returns the YYYY-MM period the transaction belongs to.
func (t *Transaction) Period() string {
	return PeriodOf(t.Date)
}

// PeriodOf returns the YYYY-MM prefix of a YYYY-MM-DD date.
func PeriodOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// Signed returns the amount with expenses negated.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}
