package report

import (
	"context"
	"fmt"

	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-fintrack/pagination"
	"github.com/goliatone/go-fintrack/transaction"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// TotalsSource sums a user's transactions in a period.
type TotalsSource interface {
	Totals(ctx context.Context, userID, period string) (transaction.Totals, error)
}

// Service owns report use cases.
type Service struct {
	repo   *Repository
	totals TotalsSource
	logger logging.Logger
}

// NewService creates a service. totals is only needed by Recalculate.
func NewService(repo *Repository, totals TotalsSource) *Service {
	return &Service{
		repo:   repo,
		totals: totals,
		logger: logging.Default(),
	}
}

// WithLogger overrides the logger.
func (s *Service) WithLogger(logger logging.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Apply folds a transaction event into the affected reports. For updates the
// previous contribution is reversed first, which may touch another period.
func (s *Service) Apply(ctx context.Context, event transaction.Event) error {
	if event.UserID == "" {
		return fmt.Errorf("transaction %d: event without user", event.TransactionID)
	}

	return s.repo.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if prev := event.Previous; prev != nil {
			if err := s.adjust(ctx, tx, event.UserID, *prev, true); err != nil {
				return err
			}
		}
		return s.adjust(ctx, tx, event.UserID, event.Current(), false)
	})
}

func (s *Service) adjust(ctx context.Context, tx bun.Tx, userID string, snap transaction.Snapshot, reverse bool) error {
	period := transaction.PeriodOf(snap.Date)
	if err := ValidatePeriod(period); err != nil {
		return fmt.Errorf("transaction date %q: %w", snap.Date, err)
	}

	rep, err := s.repo.GetTx(ctx, tx, userID, period)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		rep = newReport(userID, period)
	}

	amount := snap.Amount
	if reverse {
		amount = amount.Neg()
	}

	switch snap.Type {
	case transaction.Income:
		rep.TotalIncome = rep.TotalIncome.Add(amount)
	case transaction.Expense:
		rep.TotalExpense = rep.TotalExpense.Add(amount)
	default:
		return fmt.Errorf("unknown transaction type %q", snap.Type)
	}
	rep.rebalance()

	s.logger.Debug("report adjusted",
		"user_id", userID,
		"period", period,
		"type", snap.Type,
		"amount", amount.String(),
	)
	return s.repo.SaveTx(ctx, tx, rep)
}

// Get returns userID's report for period.
func (s *Service) Get(ctx context.Context, userID, period string) (*Report, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID, period)
}

// List pages through userID's reports, latest period first.
func (s *Service) List(ctx context.Context, userID string, page pagination.Request) (pagination.Page[Report], error) {
	page = page.Normalize()
	items, total, err := s.repo.List(ctx, userID, page)
	if err != nil {
		return pagination.Page[Report]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

// Summary aggregates userID's reports from start to end inclusive.
func (s *Service) Summary(ctx context.Context, userID, start, end string) (*Summary, error) {
	if err := ValidatePeriod(start); err != nil {
		return nil, err
	}
	if err := ValidatePeriod(end); err != nil {
		return nil, err
	}
	if start > end {
		return nil, ErrInvalidRange
	}

	reports, err := s.repo.Range(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []Report{}
	}

	summary := &Summary{
		UserID:       userID,
		StartPeriod:  start,
		EndPeriod:    end,
		Reports:      reports,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, r := range reports {
		summary.TotalIncome = summary.TotalIncome.Add(r.TotalIncome)
		summary.TotalExpense = summary.TotalExpense.Add(r.TotalExpense)
	}
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary, nil
}

// Delete removes userID's report for period.
func (s *Service) Delete(ctx context.Context, userID, period string) error {
	if err := ValidatePeriod(period); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, period)
}

// Recalculate rebuilds userID's report for period from stored transactions.
func (s *Service) Recalculate(ctx context.Context, userID, period string) (*Report, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	if s.totals == nil {
		return nil, fmt.Errorf("report recalculation has no totals source")
	}

	totals, err := s.totals.Totals(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	var rep *Report
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.repo.GetTx(ctx, tx, userID, period)
		if err != nil {
			if !isNotFound(err) {
				return err
			}
			existing = newReport(userID, period)
		}
		existing.TotalIncome = totals.Income
		existing.TotalExpense = totals.Expense
		existing.rebalance()
		rep = existing
		return s.repo.SaveTx(ctx, tx, existing)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("report recalculated", "user_id", userID, "period", period)
	return rep, nil
}
