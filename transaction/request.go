package transaction

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
)

const (
	maxIntegerDigits  = 17
	maxFractionDigits = 2
)

// Request is the payload to create or update a transaction.
type Request struct {
	Type        Type            `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

// Validate checks the request fields.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, validation.In(Income, Expense).Error("must be INCOME or EXPENSE")),
		validation.Field(&r.Amount, validation.By(validateAmount)),
		validation.Field(&r.Category, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Date, validation.Required, validation.Date(DateLayout).Error("must be a date formatted as YYYY-MM-DD")),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

func (r Request) normalized() Request {
	r.Category = strings.TrimSpace(r.Category)
	r.Description = strings.TrimSpace(r.Description)
	r.Date = strings.TrimSpace(r.Date)
	r.Type = Type(strings.ToUpper(strings.TrimSpace(string(r.Type))))
	return r
}

func validateAmount(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal amount")
	}
	if !amount.IsPositive() {
		return errors.New("must be greater than zero")
	}
	if -amount.Exponent() > maxFractionDigits && !amount.Equal(amount.Round(maxFractionDigits)) {
		return errors.New("must have at most 2 decimal places")
	}
	if len(amount.Truncate(0).String()) > maxIntegerDigits {
		return errors.New("must have at most 17 integer digits")
	}
	return nil
}
