// Package migration implements Sonar's versioned schema migration runner.
// Migrations are numbered SQL scripts under sql/, embedded into the
// binary, each optionally paired with a Go hook for data backfills that
// plain SQL can't express. A schema_migrations table records applied
// versions; on boot, pending migrations run in order inside a transaction,
// and a failed migration aborts startup.
package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Hook runs additional data backfill work for a migration version, inside
// the same transaction as its schema script.
type Hook func(tx *sql.Tx) error

// hooks maps migration version to its optional backfill hook.
var hooks = map[int]Hook{
	2: backfillListenCounts,
}

type migrationFile struct {
	version int
	name    string
	sql     string
}

func loadMigrations() ([]migrationFile, error) {
	entries, err := fs.ReadDir(sqlFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("reading embedded migrations: %w", err)
	}

	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, name, err := parseFilename(e.Name())
		if err != nil {
			return nil, err
		}
		data, err := sqlFiles.ReadFile("sql/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		files = append(files, migrationFile{version: version, name: name, sql: string(data)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

func parseFilename(name string) (int, string, error) {
	trimmed := strings.TrimSuffix(name, ".sql")
	parts := strings.SplitN(trimmed, "_", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("migration filename %q must be NNN_name.sql", name)
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("migration filename %q has a non-numeric version: %w", name, err)
	}
	return version, parts[1], nil
}

// Run applies every migration newer than the highest recorded version, in
// order, each inside its own transaction. A failure aborts the remaining
// migrations and is returned to the caller (who should abort startup).
func Run(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scanning schema_migrations: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		log.Printf("migration: applying %03d_%s", m.version, m.name)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}

		if hook, ok := hooks[m.version]; ok {
			if err := hook(tx); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d (%s) hook: %w", m.version, m.name, err)
			}
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: recording version: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
	}

	return nil
}

// backfillListenCounts recomputes artists/albums/tracks.listen_count from
// scrobbles, for upgrades from a schema that predates the counters.
func backfillListenCounts(tx *sql.Tx) error {
	statements := []string{
		`UPDATE tracks t SET listen_count = COALESCE((
			SELECT COUNT(*) FROM scrobbles s WHERE s.track_id = t.id
		), 0)`,
		`UPDATE albums a SET listen_count = COALESCE((
			SELECT COUNT(*) FROM scrobbles s JOIN tracks t ON t.id = s.track_id WHERE t.album_id = a.id
		), 0)`,
		`UPDATE artists ar SET listen_count = COALESCE((
			SELECT COUNT(*) FROM scrobbles s
			JOIN tracks t ON t.id = s.track_id
			JOIN albums a ON a.id = t.album_id
			WHERE a.artist_id = ar.id
		), 0)`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
