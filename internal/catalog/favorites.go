package catalog

import (
	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

type Favorite struct {
	UserID     int64
	Namespace  id.Namespace
	Identifier int64
}

// AddFavorite marks (namespace, identifier) as favorited by userID. Already
// being favorited is a no-op, per spec §4.9's idempotence requirement.
func (c *Catalog) AddFavorite(userID int64, namespace id.Namespace, identifier int64) error {
	_, err := c.db.Exec(
		`INSERT INTO favorites (user_id, namespace, identifier) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, namespace, identifier) DO NOTHING`,
		userID, string(namespace), identifier)
	if err != nil {
		if isForeignKeyViolation(err) {
			return sonarerr.NotFound("user", "")
		}
		return sonarerr.Internal(err)
	}
	return nil
}

// RemoveFavorite unmarks (namespace, identifier). Not being favorited is a
// no-op.
func (c *Catalog) RemoveFavorite(userID int64, namespace id.Namespace, identifier int64) error {
	_, err := c.db.Exec(
		`DELETE FROM favorites WHERE user_id = $1 AND namespace = $2 AND identifier = $3`,
		userID, string(namespace), identifier)
	if err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

func (c *Catalog) IsFavorite(userID int64, namespace id.Namespace, identifier int64) (bool, error) {
	var exists bool
	err := c.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND namespace = $2 AND identifier = $3)`,
		userID, string(namespace), identifier).Scan(&exists)
	if err != nil {
		return false, sonarerr.Internal(err)
	}
	return exists, nil
}

func (c *Catalog) ListFavorites(userID int64, namespace id.Namespace, page Page) ([]Favorite, error) {
	rows, err := c.db.Query(
		`SELECT user_id, namespace, identifier FROM favorites
		 WHERE user_id = $1 AND namespace = $2 ORDER BY identifier ASC OFFSET $3 LIMIT $4`,
		userID, string(namespace), page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		var ns string
		if err := rows.Scan(&f.UserID, &ns, &f.Identifier); err != nil {
			return nil, sonarerr.Internal(err)
		}
		f.Namespace = id.Namespace(ns)
		favorites = append(favorites, f)
	}
	return favorites, nil
}
