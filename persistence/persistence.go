// Package persistence opens the bun database and creates the schema.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// MemoryDSN is a private in-memory database.
const MemoryDSN = "file::memory:"

// Table describes a model and the indexes created with it.
type Table struct {
	Model   any
	Indexes []Index
}

// Index is a secondary index on a Table.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Open connects to the sqlite database at dsn. In-memory databases are
// pinned to one connection so every query sees the same data.
func Open(dsn string) (*bun.DB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if isMemory(dsn) {
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
		sqldb.SetConnMaxLifetime(0)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db bun.IDB, tables ...Table) error {
	for _, table := range tables {
		if _, err := db.NewCreateTable().Model(table.Model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", table.Model, err)
		}

		for _, idx := range table.Indexes {
			q := db.NewCreateIndex().
				Model(table.Model).
				Index(idx.Name).
				Column(idx.Columns...).
				IfNotExists()
			if idx.Unique {
				q = q.Unique()
			}
			if _, err := q.Exec(ctx); err != nil {
				return fmt.Errorf("create index %s: %w", idx.Name, err)
			}
		}
	}
	return nil
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
