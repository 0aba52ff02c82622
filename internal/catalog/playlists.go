package catalog

import (
	"database/sql"
	"time"

	"sonar/internal/sonarerr"
)

type Playlist struct {
	ID           int64
	OwnerID      int64
	Name         string
	CoverImageID sql.NullInt64
	TrackCount   int
	DurationMs   int64
}

func (c *Catalog) CreatePlaylist(ownerID int64, name string) (*Playlist, error) {
	p := &Playlist{OwnerID: ownerID, Name: name}
	err := c.db.QueryRow(`INSERT INTO playlists (owner_id, name) VALUES ($1, $2) RETURNING id`,
		ownerID, name).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sonarerr.Conflict("playlist name already used by this owner")
		}
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("user", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return p, nil
}

const playlistSelect = `
	SELECT p.id, p.owner_id, p.name, p.cover_image_id,
	       (SELECT COUNT(*) FROM playlist_tracks pt WHERE pt.playlist_id = p.id),
	       COALESCE((
	         SELECT SUM(au.duration_ms) FROM playlist_tracks pt
	         JOIN track_audios ta ON ta.track_id = pt.track_id AND ta.preferred
	         JOIN audios au ON au.id = ta.audio_id
	         WHERE pt.playlist_id = p.id
	       ), 0)
	FROM playlists p`

func (c *Catalog) GetPlaylist(id int64) (*Playlist, error) {
	p := &Playlist{}
	err := c.db.QueryRow(playlistSelect+` WHERE p.id = $1`, id).
		Scan(&p.ID, &p.OwnerID, &p.Name, &p.CoverImageID, &p.TrackCount, &p.DurationMs)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("playlist", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return p, nil
}

func (c *Catalog) ListPlaylistsByOwner(ownerID int64, page Page) ([]*Playlist, error) {
	rows, err := c.db.Query(playlistSelect+` WHERE p.owner_id = $1 ORDER BY p.id ASC OFFSET $2 LIMIT $3`,
		ownerID, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return scanPlaylists(rows)
}

func scanPlaylists(rows *sql.Rows) ([]*Playlist, error) {
	defer rows.Close()
	var playlists []*Playlist
	for rows.Next() {
		p := &Playlist{}
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CoverImageID, &p.TrackCount, &p.DurationMs); err != nil {
			return nil, sonarerr.Internal(err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

type UpdatePlaylistPatch struct {
	Name         Optional[string]
	CoverImageID Optional[sql.NullInt64]
}

func (c *Catalog) UpdatePlaylist(id int64, patch UpdatePlaylistPatch) (*Playlist, error) {
	p, err := c.GetPlaylist(id)
	if err != nil {
		return nil, err
	}
	patch.Name.Apply(&p.Name)
	patch.CoverImageID.Apply(&p.CoverImageID)

	_, err = c.db.Exec(`UPDATE playlists SET name = $1, cover_image_id = $2 WHERE id = $3`,
		p.Name, p.CoverImageID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sonarerr.Conflict("playlist name already used by this owner")
		}
		return nil, sonarerr.Internal(err)
	}
	return p, nil
}

func (c *Catalog) DeletePlaylist(id int64) error {
	res, err := c.db.Exec(`DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("playlist", "")
	}
	return nil
}

// DuplicatePlaylist copies sourceID's tracks, in their current order,
// into a brand-new playlist owned by ownerID under newName.
func (c *Catalog) DuplicatePlaylist(ownerID, sourceID int64, newName string) (*Playlist, error) {
	tracks, err := c.ListPlaylistTracks(sourceID)
	if err != nil {
		return nil, err
	}

	p, err := c.CreatePlaylist(ownerID, newName)
	if err != nil {
		return nil, err
	}
	for _, pt := range tracks {
		if _, err := c.InsertPlaylistTracks(p.ID, []int64{pt.TrackID}); err != nil {
			return nil, err
		}
	}
	return c.GetPlaylist(p.ID)
}

type PlaylistTrack struct {
	PlaylistID int64
	TrackID    int64
	Position   int64
	InsertedAt time.Time
}

// ListPlaylistTracks returns tracks ordered by position ascending, the
// order they were inserted in.
func (c *Catalog) ListPlaylistTracks(playlistID int64) ([]PlaylistTrack, error) {
	rows, err := c.db.Query(
		`SELECT playlist_id, track_id, position, inserted_at FROM playlist_tracks
		 WHERE playlist_id = $1 ORDER BY position ASC`, playlistID)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var tracks []PlaylistTrack
	for rows.Next() {
		var pt PlaylistTrack
		if err := rows.Scan(&pt.PlaylistID, &pt.TrackID, &pt.Position, &pt.InsertedAt); err != nil {
			return nil, sonarerr.Internal(err)
		}
		tracks = append(tracks, pt)
	}
	return tracks, nil
}

// InsertPlaylistTracks appends trackIDs in order, assigning each a position
// one past the playlist's current maximum. A track already present in the
// playlist is skipped (idempotent no-op, keeping its original position) per
// spec §4.8 — the PlaylistTrack primary key is (playlist, track), so
// duplicates never produce a second row. The running counter is read once
// under FOR UPDATE and incremented locally for the rest of the batch, since
// inserted_at's transaction-start timestamp can't order rows inserted in the
// same transaction.
func (c *Catalog) InsertPlaylistTracks(playlistID int64, trackIDs []int64) ([]PlaylistTrack, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer tx.Rollback()

	// Lock the playlist row itself so concurrent inserts into the same
	// playlist serialize; MAX(position) can't take FOR UPDATE directly
	// since Postgres rejects FOR UPDATE combined with aggregates.
	if _, err := tx.Exec(`SELECT id FROM playlists WHERE id = $1 FOR UPDATE`, playlistID); err != nil {
		return nil, sonarerr.Internal(err)
	}
	var next sql.NullInt64
	if err := tx.QueryRow(
		`SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = $1`,
		playlistID).Scan(&next); err != nil {
		return nil, sonarerr.Internal(err)
	}
	pos := next.Int64

	for _, tid := range trackIDs {
		pos++
		if _, err := tx.Exec(
			`INSERT INTO playlist_tracks (playlist_id, track_id, position) VALUES ($1, $2, $3)
			 ON CONFLICT (playlist_id, track_id) DO NOTHING`,
			playlistID, tid, pos); err != nil {
			if isForeignKeyViolation(err) {
				return nil, sonarerr.NotFound("track", "")
			}
			return nil, sonarerr.Internal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, sonarerr.Internal(err)
	}
	return c.ListPlaylistTracks(playlistID)
}

// RemovePlaylistTracks removes trackIDs from playlistID. Removing a track
// that isn't present is a no-op (idempotent), per spec §4.8.
func (c *Catalog) RemovePlaylistTracks(playlistID int64, trackIDs []int64) error {
	for _, tid := range trackIDs {
		if _, err := c.db.Exec(
			`DELETE FROM playlist_tracks WHERE playlist_id = $1 AND track_id = $2`, playlistID, tid,
		); err != nil {
			return sonarerr.Internal(err)
		}
	}
	return nil
}

func (c *Catalog) ClearPlaylistTracks(playlistID int64) error {
	if _, err := c.db.Exec(`DELETE FROM playlist_tracks WHERE playlist_id = $1`, playlistID); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}
