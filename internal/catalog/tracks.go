package catalog

import (
	"database/sql"

	"sonar/internal/sonarerr"
)

type Track struct {
	ID               int64
	Name             string
	AlbumID          int64
	ListenCount      int64
	CoverImageID     sql.NullInt64
	LyricsKind       sql.NullString // "S" synced, "U" unsynced, NULL none
	DurationMs       int64          // denormalized: preferred audio's duration
	PreferredAudioID sql.NullInt64  // denormalized
}

func (c *Catalog) CreateTrack(name string, albumID int64) (*Track, error) {
	t := &Track{Name: name, AlbumID: albumID}
	err := c.db.QueryRow(`INSERT INTO tracks (name, album_id) VALUES ($1, $2) RETURNING id`,
		name, albumID).Scan(&t.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("album", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return t, nil
}

// FindTrackByAlbumAndName looks up a track by (album, title), the import
// pipeline's track-resolution key.
func (c *Catalog) FindTrackByAlbumAndName(albumID int64, name string) (*Track, error) {
	var id int64
	err := c.db.QueryRow(`SELECT id FROM tracks WHERE album_id = $1 AND name = $2`, albumID, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("track", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return c.GetTrack(id)
}

const trackSelect = `
	SELECT t.id, t.name, t.album_id, t.listen_count, t.cover_image_id, t.lyrics_kind,
	       COALESCE(au.duration_ms, 0), ta.audio_id
	FROM tracks t
	LEFT JOIN track_audios ta ON ta.track_id = t.id AND ta.preferred
	LEFT JOIN audios au ON au.id = ta.audio_id`

func (c *Catalog) GetTrack(id int64) (*Track, error) {
	t := &Track{}
	err := c.db.QueryRow(trackSelect+` WHERE t.id = $1`, id).
		Scan(&t.ID, &t.Name, &t.AlbumID, &t.ListenCount, &t.CoverImageID, &t.LyricsKind, &t.DurationMs, &t.PreferredAudioID)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("track", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return t, nil
}

func (c *Catalog) ListTracksByAlbum(albumID int64, page Page) ([]*Track, error) {
	rows, err := c.db.Query(trackSelect+` WHERE t.album_id = $1 ORDER BY t.id ASC OFFSET $2 LIMIT $3`,
		albumID, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return scanTracks(rows)
}

func (c *Catalog) ListTracks(page Page) ([]*Track, error) {
	rows, err := c.db.Query(trackSelect+` ORDER BY t.id ASC OFFSET $1 LIMIT $2`, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return scanTracks(rows)
}

func scanTracks(rows *sql.Rows) ([]*Track, error) {
	defer rows.Close()
	var tracks []*Track
	for rows.Next() {
		t := &Track{}
		if err := rows.Scan(&t.ID, &t.Name, &t.AlbumID, &t.ListenCount, &t.CoverImageID, &t.LyricsKind, &t.DurationMs, &t.PreferredAudioID); err != nil {
			return nil, sonarerr.Internal(err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

type UpdateTrackPatch struct {
	Name         Optional[string]
	AlbumID      Optional[int64]
	CoverImageID Optional[sql.NullInt64]
	LyricsKind   Optional[sql.NullString]
}

func (c *Catalog) UpdateTrack(id int64, patch UpdateTrackPatch) (*Track, error) {
	t, err := c.GetTrack(id)
	if err != nil {
		return nil, err
	}
	patch.Name.Apply(&t.Name)
	patch.AlbumID.Apply(&t.AlbumID)
	patch.CoverImageID.Apply(&t.CoverImageID)
	patch.LyricsKind.Apply(&t.LyricsKind)

	_, err = c.db.Exec(
		`UPDATE tracks SET name = $1, album_id = $2, cover_image_id = $3, lyrics_kind = $4 WHERE id = $5`,
		t.Name, t.AlbumID, t.CoverImageID, t.LyricsKind, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("album", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return t, nil
}

func (c *Catalog) DeleteTrack(id int64) error {
	res, err := c.db.Exec(`DELETE FROM tracks WHERE id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("track", "")
	}
	return nil
}

func (c *Catalog) AdjustTrackListenCount(tx *sql.Tx, id int64, delta int64) error {
	_, err := tx.Exec(`UPDATE tracks SET listen_count = listen_count + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

// TrackAlbumArtist resolves a track's album and artist ids in one query,
// used by the scrobble transaction to bump all three counters.
func (c *Catalog) TrackAlbumArtist(trackID int64) (albumID, artistID int64, err error) {
	row := c.db.QueryRow(`
		SELECT al.id, al.artist_id FROM tracks t JOIN albums al ON al.id = t.album_id WHERE t.id = $1`, trackID)
	if scanErr := row.Scan(&albumID, &artistID); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, 0, sonarerr.NotFound("track", "")
		}
		return 0, 0, sonarerr.Internal(scanErr)
	}
	return albumID, artistID, nil
}
