// Package database owns the catalog's Postgres connection pool: opening
// it, bounding its size per spec §5, and running pending migrations on
// boot.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"sonar/internal/migration"
)

type DB struct {
	*sql.DB
}

// Open connects to databaseURL, bounds the connection pool to poolSize,
// and runs any pending migrations before returning. A failed migration
// aborts startup, per the migration runner's contract.
func Open(databaseURL string, poolSize int) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	if poolSize <= 0 {
		poolSize = 8
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging catalog database: %w", err)
	}

	if err := migration.Run(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &DB{db}, nil
}
