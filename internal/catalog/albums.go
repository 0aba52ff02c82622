package catalog

import (
	"database/sql"

	"sonar/internal/sonarerr"
)

type Album struct {
	ID           int64
	Name         string
	ArtistID     int64
	ListenCount  int64
	CoverImageID sql.NullInt64
	TrackCount   int   // denormalized, populated on read
	DurationMs   int64 // denormalized: sum of preferred-audio durations
}

func (c *Catalog) CreateAlbum(name string, artistID int64) (*Album, error) {
	al := &Album{Name: name, ArtistID: artistID}
	err := c.db.QueryRow(`INSERT INTO albums (name, artist_id) VALUES ($1, $2) RETURNING id`,
		name, artistID).Scan(&al.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("artist", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return al, nil
}

// FindAlbumByArtistAndName looks up an album by (artist, name), the
// import pipeline's album-resolution key.
func (c *Catalog) FindAlbumByArtistAndName(artistID int64, name string) (*Album, error) {
	var id int64
	err := c.db.QueryRow(`SELECT id FROM albums WHERE artist_id = $1 AND name = $2`, artistID, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("album", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return c.GetAlbum(id)
}

const albumSelect = `
	SELECT al.id, al.name, al.artist_id, al.listen_count, al.cover_image_id,
	       (SELECT COUNT(*) FROM tracks t WHERE t.album_id = al.id),
	       COALESCE((
	         SELECT SUM(au.duration_ms) FROM tracks t
	         JOIN track_audios ta ON ta.track_id = t.id AND ta.preferred
	         JOIN audios au ON au.id = ta.audio_id
	         WHERE t.album_id = al.id
	       ), 0)
	FROM albums al`

func (c *Catalog) GetAlbum(id int64) (*Album, error) {
	al := &Album{}
	err := c.db.QueryRow(albumSelect+` WHERE al.id = $1`, id).
		Scan(&al.ID, &al.Name, &al.ArtistID, &al.ListenCount, &al.CoverImageID, &al.TrackCount, &al.DurationMs)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("album", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return al, nil
}

func (c *Catalog) ListAlbumsByArtist(artistID int64, page Page) ([]*Album, error) {
	rows, err := c.db.Query(albumSelect+` WHERE al.artist_id = $1 ORDER BY al.id ASC OFFSET $2 LIMIT $3`,
		artistID, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return scanAlbums(rows)
}

func (c *Catalog) ListAlbums(page Page) ([]*Album, error) {
	rows, err := c.db.Query(albumSelect+` ORDER BY al.id ASC OFFSET $1 LIMIT $2`, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return scanAlbums(rows)
}

func scanAlbums(rows *sql.Rows) ([]*Album, error) {
	defer rows.Close()
	var albums []*Album
	for rows.Next() {
		al := &Album{}
		if err := rows.Scan(&al.ID, &al.Name, &al.ArtistID, &al.ListenCount, &al.CoverImageID, &al.TrackCount, &al.DurationMs); err != nil {
			return nil, sonarerr.Internal(err)
		}
		albums = append(albums, al)
	}
	return albums, nil
}

type UpdateAlbumPatch struct {
	Name         Optional[string]
	ArtistID     Optional[int64]
	CoverImageID Optional[sql.NullInt64]
}

func (c *Catalog) UpdateAlbum(id int64, patch UpdateAlbumPatch) (*Album, error) {
	al, err := c.GetAlbum(id)
	if err != nil {
		return nil, err
	}
	patch.Name.Apply(&al.Name)
	patch.ArtistID.Apply(&al.ArtistID)
	patch.CoverImageID.Apply(&al.CoverImageID)

	_, err = c.db.Exec(`UPDATE albums SET name = $1, artist_id = $2, cover_image_id = $3 WHERE id = $4`,
		al.Name, al.ArtistID, al.CoverImageID, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("artist", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return al, nil
}

// DeleteAlbum removes albumID and cascades to its tracks (and, through
// each track's track_audios FK, its TrackAudio rows) — the documented
// cascade policy for this parent.
func (c *Catalog) DeleteAlbum(id int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()
	if err := c.deleteAlbumTx(tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

func (c *Catalog) deleteAlbumTx(tx *sql.Tx, albumID int64) error {
	rows, err := tx.Query(`SELECT id FROM tracks WHERE album_id = $1`, albumID)
	if err != nil {
		return sonarerr.Internal(err)
	}
	var trackIDs []int64
	for rows.Next() {
		var tid int64
		if err := rows.Scan(&tid); err != nil {
			rows.Close()
			return sonarerr.Internal(err)
		}
		trackIDs = append(trackIDs, tid)
	}
	rows.Close()

	for _, tid := range trackIDs {
		// track_audios and lyrics_lines cascade via their own FKs.
		if _, err := tx.Exec(`DELETE FROM tracks WHERE id = $1`, tid); err != nil {
			return sonarerr.Internal(err)
		}
	}

	res, err := tx.Exec(`DELETE FROM albums WHERE id = $1`, albumID)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("album", "")
	}
	return nil
}

func (c *Catalog) AdjustAlbumListenCount(tx *sql.Tx, id int64, delta int64) error {
	_, err := tx.Exec(`UPDATE albums SET listen_count = listen_count + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}
