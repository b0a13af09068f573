package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-fintrack/persistence"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrAccountNotFound is returned when no account is linked to a provider id.
var ErrAccountNotFound = errors.New("social account not found")

// Account links a provider identity to a user.
type Account struct {
	bun.BaseModel `bun:"table:social_accounts,alias:sa"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"userId"`
	Provider       string     `bun:"provider,notnull" json:"provider"`
	ProviderUserID string     `bun:"provider_user_id,notnull" json:"providerUserId"`
	Email          string     `bun:"email" json:"email,omitempty"`
	Name           string     `bun:"name" json:"name,omitempty"`
	AvatarURL      string     `bun:"avatar_url" json:"avatarUrl,omitempty"`
	AccessToken    string     `bun:"access_token" json:"-"`
	RefreshToken   string     `bun:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time `bun:"token_expires_at,nullzero" json:"-"`
	CreatedAt      time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

// AccountRepository stores linked accounts.
type AccountRepository interface {
	FindByProviderID(ctx context.Context, provider, providerUserID string) (*Account, error)
	FindByUserID(ctx context.Context, userID string) ([]Account, error)
	Upsert(ctx context.Context, account *Account) error
}

// Accounts is the bun backed AccountRepository.
type Accounts struct {
	db *bun.DB
}

// NewAccounts creates a store on db.
func NewAccounts(db *bun.DB) *Accounts {
	return &Accounts{db: db}
}

// Tables returns the schema owned by the package.
func Tables() []persistence.Table {
	return []persistence.Table{
		{
			Model: (*Account)(nil),
			Indexes: []persistence.Index{
				{Name: "social_accounts_provider_idx", Columns: []string{"provider", "provider_user_id"}, Unique: true},
				{Name: "social_accounts_user_idx", Columns: []string{"user_id"}},
			},
		},
	}
}

// FindByProviderID loads the account linked to a provider identity.
func (r *Accounts) FindByProviderID(ctx context.Context, provider, providerUserID string) (*Account, error) {
	account := &Account{}
	err := r.db.NewSelect().
		Model(account).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_user_id = ?", providerUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// FindByUserID lists the accounts linked to a user.
func (r *Accounts) FindByUserID(ctx context.Context, userID string) ([]Account, error) {
	var accounts []Account
	err := r.db.NewSelect().
		Model(&accounts).
		Where("?TableAlias.user_id = ?", userID).
		Order("provider ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Upsert inserts account or refreshes the stored provider data.
func (r *Accounts) Upsert(ctx context.Context, account *Account) error {
	now := time.Now().UTC()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(account).
		On("CONFLICT (provider, provider_user_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_expires_at = EXCLUDED.token_expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert social account: %w", err)
	}
	return nil
}

var _ AccountRepository = (*Accounts)(nil)
