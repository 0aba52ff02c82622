package catalog

import (
	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

type Pin struct {
	UserID     int64
	Namespace  id.Namespace
	Identifier int64
}

// SetPins pins every (namespace, identifiers[i]) for userID. Already-pinned
// entries are left as-is (idempotent), per spec §4.9's pinSet semantics.
func (c *Catalog) SetPins(userID int64, namespace id.Namespace, identifiers []int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()

	for _, ident := range identifiers {
		if _, err := tx.Exec(
			`INSERT INTO pins (user_id, namespace, identifier) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, namespace, identifier) DO NOTHING`,
			userID, string(namespace), ident); err != nil {
			if isForeignKeyViolation(err) {
				return sonarerr.NotFound("user", "")
			}
			return sonarerr.Internal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

// UnsetPins unpins every (namespace, identifiers[i]) for userID. Unsetting
// an entry that isn't pinned is a no-op.
func (c *Catalog) UnsetPins(userID int64, namespace id.Namespace, identifiers []int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()

	for _, ident := range identifiers {
		if _, err := tx.Exec(
			`DELETE FROM pins WHERE user_id = $1 AND namespace = $2 AND identifier = $3`,
			userID, string(namespace), ident); err != nil {
			return sonarerr.Internal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

func (c *Catalog) ListPins(userID int64, namespace id.Namespace, page Page) ([]Pin, error) {
	rows, err := c.db.Query(
		`SELECT user_id, namespace, identifier FROM pins
		 WHERE user_id = $1 AND namespace = $2 ORDER BY identifier ASC OFFSET $3 LIMIT $4`,
		userID, string(namespace), page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var pins []Pin
	for rows.Next() {
		var p Pin
		var ns string
		if err := rows.Scan(&p.UserID, &ns, &p.Identifier); err != nil {
			return nil, sonarerr.Internal(err)
		}
		p.Namespace = id.Namespace(ns)
		pins = append(pins, p)
	}
	return pins, nil
}
