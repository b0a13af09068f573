package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-fintrack/pagination"
	"github.com/goliatone/go-fintrack/persistence"
	"github.com/uptrace/bun"
)

// Repository is the bun backed report store.
type Repository struct {
	db *bun.DB
}

// NewRepository creates a store on db.
func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Tables returns the schema owned by the package.
func Tables() []persistence.Table {
	return []persistence.Table{
		{
			Model: (*Report)(nil),
			Indexes: []persistence.Index{
				{Name: "reports_user_period_idx", Columns: []string{"user_id", "period"}, Unique: true},
			},
		},
	}
}

// RunInTx runs fn in a transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, fn)
}

// Get loads the report of userID for period.
func (r *Repository) Get(ctx context.Context, userID, period string) (*Report, error) {
	return r.GetTx(ctx, r.db, userID, period)
}

// GetTx loads the report of userID for period within tx.
func (r *Repository) GetTx(ctx context.Context, tx bun.IDB, userID, period string) (*Report, error) {
	rep := &Report{}
	err := tx.NewSelect().
		Model(rep).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.period = ?", period).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for user %s and period %s", ErrReportNotFound, userID, period)
		}
		return nil, err
	}
	return rep, nil
}

// SaveTx inserts rep or updates its totals.
func (r *Repository) SaveTx(ctx context.Context, tx bun.IDB, rep *Report) error {
	now := time.Now().UTC()
	rep.UpdatedAt = now

	if rep.ID == 0 {
		rep.CreatedAt = now
		if _, err := tx.NewInsert().Model(rep).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		return nil
	}

	_, err := tx.NewUpdate().
		Model(rep).
		Column("total_income", "total_expense", "balance", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return nil
}

// List returns one page of userID's reports, latest period first.
func (r *Repository) List(ctx context.Context, userID string, page pagination.Request) ([]Report, int, error) {
	page = page.Normalize()

	var items []Report
	total, err := r.db.NewSelect().
		Model(&items).
		Where("?TableAlias.user_id = ?", userID).
		Order("period DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return items, total, nil
}

// Range returns userID's reports between start and end inclusive, ascending.
func (r *Repository) Range(ctx context.Context, userID, start, end string) ([]Report, error) {
	var items []Report
	err := r.db.NewSelect().
		Model(&items).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.period >= ?", start).
		Where("?TableAlias.period <= ?", end).
		Order("period ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("range reports: %w", err)
	}
	return items, nil
}

// Delete removes the report of userID for period.
func (r *Repository) Delete(ctx context.Context, userID, period string) error {
	res, err := r.db.NewDelete().
		Model((*Report)(nil)).
		Where("user_id = ?", userID).
		Where("period = ?", period).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w for user %s and period %s", ErrReportNotFound, userID, period)
	}
	return nil
}
