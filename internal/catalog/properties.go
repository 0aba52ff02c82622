package catalog

import (
	"database/sql"

	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

// SetProperty writes (namespace, identifier, key)'s value. userID is nil
// for the global value; non-nil writes a per-user override, per spec
// §4.4's override dimension.
func (c *Catalog) SetProperty(namespace id.Namespace, identifier int64, key string, userID sql.NullInt64, value string) error {
	var err error
	if userID.Valid {
		_, err = c.db.Exec(`
			INSERT INTO properties (namespace, identifier, key, user_id, value) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (namespace, identifier, key, user_id) WHERE user_id IS NOT NULL DO UPDATE SET value = EXCLUDED.value`,
			string(namespace), identifier, key, userID, value)
	} else {
		_, err = c.db.Exec(`
			INSERT INTO properties (namespace, identifier, key, user_id, value) VALUES ($1, $2, $3, NULL, $4)
			ON CONFLICT (namespace, identifier, key) WHERE user_id IS NULL DO UPDATE SET value = EXCLUDED.value`,
			string(namespace), identifier, key, value)
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return sonarerr.NotFound("user", "")
		}
		return sonarerr.Internal(err)
	}
	return nil
}

// GetProperty returns the per-user override if one exists for userID,
// falling back to the global value.
func (c *Catalog) GetProperty(namespace id.Namespace, identifier int64, key string, userID sql.NullInt64) (string, error) {
	if userID.Valid {
		var value string
		err := c.db.QueryRow(
			`SELECT value FROM properties WHERE namespace = $1 AND identifier = $2 AND key = $3 AND user_id = $4`,
			string(namespace), identifier, key, userID.Int64).Scan(&value)
		if err == nil {
			return value, nil
		}
		if err != sql.ErrNoRows {
			return "", sonarerr.Internal(err)
		}
	}

	var value string
	err := c.db.QueryRow(
		`SELECT value FROM properties WHERE namespace = $1 AND identifier = $2 AND key = $3 AND user_id IS NULL`,
		string(namespace), identifier, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", sonarerr.NotFound("property", key)
	}
	if err != nil {
		return "", sonarerr.Internal(err)
	}
	return value, nil
}

// ListProperties returns the global (user_id IS NULL) properties set on
// (namespace, identifier); per-user overrides are not included.
func (c *Catalog) ListProperties(namespace id.Namespace, identifier int64) (map[string]string, error) {
	rows, err := c.db.Query(
		`SELECT key, value FROM properties WHERE namespace = $1 AND identifier = $2 AND user_id IS NULL`,
		string(namespace), identifier)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	props := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, sonarerr.Internal(err)
		}
		props[k] = v
	}
	return props, nil
}

func (c *Catalog) DeleteProperty(namespace id.Namespace, identifier int64, key string, userID sql.NullInt64) error {
	var err error
	if userID.Valid {
		_, err = c.db.Exec(
			`DELETE FROM properties WHERE namespace = $1 AND identifier = $2 AND key = $3 AND user_id = $4`,
			string(namespace), identifier, key, userID.Int64)
	} else {
		_, err = c.db.Exec(
			`DELETE FROM properties WHERE namespace = $1 AND identifier = $2 AND key = $3 AND user_id IS NULL`,
			string(namespace), identifier, key)
	}
	if err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}
