// Package report keeps monthly income, expense and balance per user, fed by
// transaction events.
package report

import (
	"errors"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ErrReportNotFound is returned when a user has no report for a period.
var ErrReportNotFound = errors.New("report not found")

// ErrInvalidPeriod is returned for periods not formatted as YYYY-MM.
var ErrInvalidPeriod = errors.New("period must be formatted as YYYY-MM")

// ErrInvalidRange is returned when a summary starts after it ends.
var ErrInvalidRange = errors.New("start period must not be after end period")

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidatePeriod checks a YYYY-MM period.
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return ErrInvalidPeriod
	}
	return nil
}

// Report is the monthly aggregate of a user's transactions.
type Report struct {
	bun.BaseModel `bun:"table:reports,alias:rpt"`

	ID           int64           `bun:"id,pk,autoincrement" json:"reportId"`
	UserID       string          `bun:"user_id,notnull" json:"userId"`
	Period       string          `bun:"period,notnull" json:"period"`
	TotalIncome  decimal.Decimal `bun:"total_income,type:varchar(32),notnull" json:"totalIncome"`
	TotalExpense decimal.Decimal `bun:"total_expense,type:varchar(32),notnull" json:"totalExpense"`
	Balance      decimal.Decimal `bun:"balance,type:varchar(32),notnull" json:"balance"`
	CreatedAt    time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
}

func newReport(userID, period string) *Report {
	return &Report{
		UserID:       userID,
		Period:       period,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Balance:      decimal.Zero,
	}
}

func (r *Report) rebalance() {
	r.Balance = r.TotalIncome.Sub(r.TotalExpense)
}

// Summary aggregates the reports of a period range.
type Summary struct {
	UserID       string          `json:"userId"`
	StartPeriod  string          `json:"startPeriod"`
	EndPeriod    string          `json:"endPeriod"`
	Reports      []Report        `json:"reports"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrReportNotFound)
}
