package catalog

import (
	"database/sql"
	"time"

	"sonar/internal/sonarerr"
)

type User struct {
	ID            int64
	Username      string
	PasswordHash  string
	AvatarImageID sql.NullInt64
	IsAdmin       bool
	CreatedAt     time.Time
}

// CreateUser inserts a new user row. Username uniqueness violations
// surface as sonarerr.Conflict.
func (c *Catalog) CreateUser(username, passwordHash string, isAdmin bool) (*User, error) {
	u := &User{Username: username, PasswordHash: passwordHash, IsAdmin: isAdmin}
	err := c.db.QueryRow(
		`INSERT INTO users (username, password_hash, is_admin) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		username, passwordHash, isAdmin,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sonarerr.Conflict("username already taken")
		}
		return nil, sonarerr.Internal(err)
	}
	return u, nil
}

func (c *Catalog) GetUser(id int64) (*User, error) {
	return c.scanUser(c.db.QueryRow(
		`SELECT id, username, password_hash, avatar_image_id, is_admin, created_at FROM users WHERE id = $1`, id))
}

func (c *Catalog) GetUserByUsername(username string) (*User, error) {
	return c.scanUser(c.db.QueryRow(
		`SELECT id, username, password_hash, avatar_image_id, is_admin, created_at FROM users WHERE username = $1`, username))
}

func (c *Catalog) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AvatarImageID, &u.IsAdmin, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("user", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return u, nil
}

func (c *Catalog) ListUsers(page Page) ([]*User, error) {
	rows, err := c.db.Query(
		`SELECT id, username, password_hash, avatar_image_id, is_admin, created_at
		 FROM users ORDER BY id ASC OFFSET $1 LIMIT $2`, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.AvatarImageID, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, sonarerr.Internal(err)
		}
		users = append(users, u)
	}
	return users, nil
}

// UpdateUserPatch carries the partial patch for UpdateUser.
type UpdateUserPatch struct {
	PasswordHash  Optional[string]
	AvatarImageID Optional[sql.NullInt64]
}

func (c *Catalog) UpdateUser(id int64, patch UpdateUserPatch) (*User, error) {
	u, err := c.GetUser(id)
	if err != nil {
		return nil, err
	}
	patch.PasswordHash.Apply(&u.PasswordHash)
	patch.AvatarImageID.Apply(&u.AvatarImageID)

	_, err = c.db.Exec(
		`UPDATE users SET password_hash = $1, avatar_image_id = $2 WHERE id = $3`,
		u.PasswordHash, u.AvatarImageID, id)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return u, nil
}

// Stats reports library-wide row counts, for the admin dashboard.
type Stats struct {
	TotalUsers   int
	TotalArtists int
	TotalAlbums  int
	TotalTracks  int
}

func (c *Catalog) Stats() (Stats, error) {
	var s Stats
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&s.TotalUsers); err != nil {
		return s, sonarerr.Internal(err)
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM artists`).Scan(&s.TotalArtists); err != nil {
		return s, sonarerr.Internal(err)
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM albums`).Scan(&s.TotalAlbums); err != nil {
		return s, sonarerr.Internal(err)
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&s.TotalTracks); err != nil {
		return s, sonarerr.Internal(err)
	}
	return s, nil
}

// DeleteUser removes the user and cascades to playlists, scrobbles,
// favorites, pins, and subscriptions (all FKs on user_id are ON DELETE
// CASCADE), per the documented cascade policy for this entity.
func (c *Catalog) DeleteUser(id int64) error {
	res, err := c.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sonarerr.NotFound("user", "")
	}
	return nil
}

