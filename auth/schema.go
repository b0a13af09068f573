package auth

import "github.com/goliatone/go-fintrack/persistence"

// Tables returns the schema owned by the package
func Tables() []persistence.Table {
	return []persistence.Table{
		{
			Model: (*User)(nil),
			Indexes: []persistence.Index{
				{Name: "users_email_idx", Columns: []string{"email"}, Unique: true},
			},
		},
	}
}
