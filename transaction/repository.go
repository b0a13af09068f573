package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-fintrack/pagination"
	"github.com/goliatone/go-fintrack/persistence"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Filter narrows List results.
type Filter struct {
	UserID string
	Period string
	Type   Type
}

// Totals are the sums of a user's transactions in a period.
type Totals struct {
	Income  decimal.Decimal `json:"totalIncome"`
	Expense decimal.Decimal `json:"totalExpense"`
}

// Balance is income minus expense.
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// Repository is the bun backed transaction store.
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
			Model: (*Transaction)(nil),
			Indexes: []persistence.Index{
				{Name: "transactions_user_date_idx", Columns: []string{"user_id", "date"}},
			},
		},
	}
}

// Create inserts t and fills its ID.
func (r *Repository) Create(ctx context.Context, t *Transaction) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(t).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Update stores the mutable fields of t.
func (r *Repository) Update(ctx context.Context, t *Transaction) error {
	t.UpdatedAt = time.Now().UTC()

	res, err := r.db.NewUpdate().
		Model(t).
		Column("type", "amount", "category", "date", "description", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w with id %d", ErrNotFound, t.ID)
	}
	return nil
}

// GetByID loads a transaction.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	t := &Transaction{}
	err := r.db.NewSelect().Model(t).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w with id %d", ErrNotFound, id)
		}
		return nil, err
	}
	return t, nil
}

// List returns one page of transactions matching f, newest date first, and
// the total number of matches.
func (r *Repository) List(ctx context.Context, f Filter, page pagination.Request) ([]Transaction, int, error) {
	page = page.Normalize()

	var items []Transaction
	q := r.db.NewSelect().Model(&items)
	applyFilter(q, f)

	total, err := q.
		Order("date DESC", "id DESC").
		Limit(page.Size).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return items, total, nil
}

// Totals sums a user's transactions in period.
func (r *Repository) Totals(ctx context.Context, userID, period string) (Totals, error) {
	var items []Transaction
	q := r.db.NewSelect().Model(&items).Column("type", "amount")
	applyFilter(q, Filter{UserID: userID, Period: period})

	if err := q.Scan(ctx); err != nil {
		return Totals{}, fmt.Errorf("sum transactions: %w", err)
	}

	totals := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range items {
		switch t.Type {
		case Income:
			totals.Income = totals.Income.Add(t.Amount)
		case Expense:
			totals.Expense = totals.Expense.Add(t.Amount)
		}
	}
	return totals, nil
}

func applyFilter(q *bun.SelectQuery, f Filter) {
	if f.UserID != "" {
		q.Where("?TableAlias.user_id = ?", f.UserID)
	}
	if f.Period != "" {
		q.Where("?TableAlias.date LIKE ?", f.Period+"-%")
	}
	if f.Type != "" {
		q.Where("?TableAlias.type = ?", f.Type)
	}
}
