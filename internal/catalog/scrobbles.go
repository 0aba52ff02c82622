package catalog

import (
	"database/sql"
	"time"

	"sonar/internal/sonarerr"
)

type Scrobble struct {
	ID               int64
	UserID           int64
	TrackID          int64
	ListenAt         time.Time
	ListenDurationMs int64
	Device           sql.NullString
}

// CreateScrobble records a listen and bumps the track/album/artist
// listen_count counters in the same transaction, per the invariant in
// spec §8 scenario 2: the three counters always move together.
func (c *Catalog) CreateScrobble(userID, trackID int64, listenAt time.Time, listenDurationMs int64, device sql.NullString) (*Scrobble, error) {
	albumID, artistID, err := c.TrackAlbumArtist(trackID)
	if err != nil {
		return nil, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer tx.Rollback()

	s := &Scrobble{UserID: userID, TrackID: trackID, ListenAt: listenAt, ListenDurationMs: listenDurationMs, Device: device}
	err = tx.QueryRow(
		`INSERT INTO scrobbles (user_id, track_id, listen_at, listen_duration_ms, device) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, trackID, listenAt, listenDurationMs, device).Scan(&s.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("user or track", "")
		}
		return nil, sonarerr.Internal(err)
	}

	if err := c.AdjustTrackListenCount(tx, trackID, 1); err != nil {
		return nil, err
	}
	if err := c.AdjustAlbumListenCount(tx, albumID, 1); err != nil {
		return nil, err
	}
	if err := c.AdjustArtistListenCount(tx, artistID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, sonarerr.Internal(err)
	}
	return s, nil
}

// DeleteScrobble removes a scrobble and reverses its counter contribution,
// restoring the invariant exercised by CreateScrobble.
func (c *Catalog) DeleteScrobble(id int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()

	var trackID int64
	err = tx.QueryRow(`SELECT track_id FROM scrobbles WHERE id = $1`, id).Scan(&trackID)
	if err == sql.ErrNoRows {
		return sonarerr.NotFound("scrobble", "")
	}
	if err != nil {
		return sonarerr.Internal(err)
	}

	albumID, artistID, err := c.TrackAlbumArtist(trackID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM scrobbles WHERE id = $1`, id); err != nil {
		return sonarerr.Internal(err)
	}
	if err := c.AdjustTrackListenCount(tx, trackID, -1); err != nil {
		return err
	}
	if err := c.AdjustAlbumListenCount(tx, albumID, -1); err != nil {
		return err
	}
	if err := c.AdjustArtistListenCount(tx, artistID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

func (c *Catalog) GetScrobble(id int64) (*Scrobble, error) {
	s := &Scrobble{}
	err := c.db.QueryRow(`SELECT id, user_id, track_id, listen_at, listen_duration_ms, device FROM scrobbles WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.TrackID, &s.ListenAt, &s.ListenDurationMs, &s.Device)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("scrobble", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return s, nil
}

// RecordScrobbleSubmission marks scrobbleID as consumed by scrobbler,
// satisfying the ScrobbleSubmission entity's (scrobble, scrobbler)
// uniqueness invariant; a duplicate submission is a no-op.
func (c *Catalog) RecordScrobbleSubmission(scrobbleID int64, scrobbler string) error {
	_, err := c.db.Exec(
		`INSERT INTO scrobble_submissions (scrobble_id, scrobbler) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		scrobbleID, scrobbler)
	if err != nil {
		if isForeignKeyViolation(err) {
			return sonarerr.NotFound("scrobble", "")
		}
		return sonarerr.Internal(err)
	}
	return nil
}

// ReconcileListenCounts recomputes every track/album/artist listen_count
// from the scrobbles table, for operators who suspect counter drift
// (e.g. after a restore from an older backup). Same statements as the
// schema's listen-count backfill migration, safe to run any number of
// times since it always derives counts fresh from scrobbles.
func (c *Catalog) ReconcileListenCounts() error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()

	statements := []string{
		`UPDATE tracks t SET listen_count = COALESCE((
			SELECT COUNT(*) FROM scrobbles s WHERE s.track_id = t.id
		), 0)`,
		`UPDATE albums a SET listen_count = COALESCE((
			SELECT COUNT(*) FROM scrobbles s JOIN tracks t ON t.id = s.track_id WHERE t.album_id = a.id
		), 0)`,
		`UPDATE artists ar SET listen_count = COALESCE((
			SELECT COUNT(*) FROM scrobbles s
			JOIN tracks t ON t.id = s.track_id
			JOIN albums a ON a.id = t.album_id
			WHERE a.artist_id = ar.id
		), 0)`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return sonarerr.Internal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

func (c *Catalog) ListScrobblesByUser(userID int64, page Page) ([]*Scrobble, error) {
	rows, err := c.db.Query(
		`SELECT id, user_id, track_id, listen_at, listen_duration_ms, device FROM scrobbles
		 WHERE user_id = $1 ORDER BY listen_at DESC OFFSET $2 LIMIT $3`,
		userID, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var scrobbles []*Scrobble
	for rows.Next() {
		s := &Scrobble{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.TrackID, &s.ListenAt, &s.ListenDurationMs, &s.Device); err != nil {
			return nil, sonarerr.Internal(err)
		}
		scrobbles = append(scrobbles, s)
	}
	return scrobbles, nil
}
