package catalog

import "github.com/lib/pq"

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), the signal callers translate into sonarerr.Conflict.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a Postgres
// foreign_key_violation (SQLSTATE 23503), which callers translate into
// sonarerr.NotFound for the referenced row.
func isForeignKeyViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23503"
}
