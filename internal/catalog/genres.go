package catalog

import (
	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

// AddGenre tags (namespace, identifier) with genre. Set semantics: adding
// an already-present genre is a no-op.
func (c *Catalog) AddGenre(namespace id.Namespace, identifier int64, genre string) error {
	_, err := c.db.Exec(
		`INSERT INTO genres (namespace, identifier, genre) VALUES ($1, $2, $3)
		 ON CONFLICT (namespace, identifier, genre) DO NOTHING`,
		string(namespace), identifier, genre)
	if err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

// RemoveGenre untags (namespace, identifier). Removing an absent genre is
// a no-op.
func (c *Catalog) RemoveGenre(namespace id.Namespace, identifier int64, genre string) error {
	_, err := c.db.Exec(
		`DELETE FROM genres WHERE namespace = $1 AND identifier = $2 AND genre = $3`,
		string(namespace), identifier, genre)
	if err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

func (c *Catalog) ListGenres(namespace id.Namespace, identifier int64) ([]string, error) {
	rows, err := c.db.Query(
		`SELECT genre FROM genres WHERE namespace = $1 AND identifier = $2 ORDER BY genre ASC`,
		string(namespace), identifier)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, sonarerr.Internal(err)
		}
		genres = append(genres, g)
	}
	return genres, nil
}
