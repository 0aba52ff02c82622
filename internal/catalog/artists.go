package catalog

import (
	"database/sql"

	"sonar/internal/sonarerr"
)

type Artist struct {
	ID            int64
	Name          string
	ListenCount   int64
	CoverImageID  sql.NullInt64
	AlbumCount    int // denormalized, populated on read
}

func (c *Catalog) CreateArtist(name string) (*Artist, error) {
	a := &Artist{Name: name}
	err := c.db.QueryRow(`INSERT INTO artists (name) VALUES ($1) RETURNING id`, name).Scan(&a.ID)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return a, nil
}

// FindArtistByName looks up an artist by exact (case-sensitive) name
// match, used by the import pipeline's artist-resolution step.
func (c *Catalog) FindArtistByName(name string) (*Artist, error) {
	var id int64
	err := c.db.QueryRow(`SELECT id FROM artists WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("artist", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return c.GetArtist(id)
}

func (c *Catalog) GetArtist(id int64) (*Artist, error) {
	a := &Artist{}
	err := c.db.QueryRow(`
		SELECT ar.id, ar.name, ar.listen_count, ar.cover_image_id,
		       (SELECT COUNT(*) FROM albums al WHERE al.artist_id = ar.id)
		FROM artists ar WHERE ar.id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.ListenCount, &a.CoverImageID, &a.AlbumCount)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("artist", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return a, nil
}

func (c *Catalog) ListArtists(page Page) ([]*Artist, error) {
	rows, err := c.db.Query(`
		SELECT ar.id, ar.name, ar.listen_count, ar.cover_image_id,
		       (SELECT COUNT(*) FROM albums al WHERE al.artist_id = ar.id)
		FROM artists ar ORDER BY ar.id ASC OFFSET $1 LIMIT $2`, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var artists []*Artist
	for rows.Next() {
		a := &Artist{}
		if err := rows.Scan(&a.ID, &a.Name, &a.ListenCount, &a.CoverImageID, &a.AlbumCount); err != nil {
			return nil, sonarerr.Internal(err)
		}
		artists = append(artists, a)
	}
	return artists, nil
}

type UpdateArtistPatch struct {
	Name         Optional[string]
	CoverImageID Optional[sql.NullInt64]
}

func (c *Catalog) UpdateArtist(id int64, patch UpdateArtistPatch) (*Artist, error) {
	a, err := c.GetArtist(id)
	if err != nil {
		return nil, err
	}
	patch.Name.Apply(&a.Name)
	patch.CoverImageID.Apply(&a.CoverImageID)

	_, err = c.db.Exec(`UPDATE artists SET name = $1, cover_image_id = $2 WHERE id = $3`,
		a.Name, a.CoverImageID, id)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return a, nil
}

// DeleteArtist removes artistID and cascades to its albums (and, via
// DeleteAlbum's own cascade, their tracks) — the documented cascade
// policy for this parent (spec §3 lifecycle note; see DESIGN.md for the
// Open Question this resolves).
func (c *Catalog) DeleteArtist(id int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id FROM albums WHERE artist_id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	var albumIDs []int64
	for rows.Next() {
		var aid int64
		if err := rows.Scan(&aid); err != nil {
			rows.Close()
			return sonarerr.Internal(err)
		}
		albumIDs = append(albumIDs, aid)
	}
	rows.Close()

	for _, aid := range albumIDs {
		if err := c.deleteAlbumTx(tx, aid); err != nil {
			return err
		}
	}

	res, err := tx.Exec(`DELETE FROM artists WHERE id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("artist", "")
	}
	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

// AdjustArtistListenCount applies delta to the artist's counter; used only
// from within the scrobble create/delete transaction.
func (c *Catalog) AdjustArtistListenCount(tx *sql.Tx, id int64, delta int64) error {
	_, err := tx.Exec(`UPDATE artists SET listen_count = listen_count + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}
