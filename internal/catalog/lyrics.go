package catalog

import (
	"sonar/internal/sonarerr"
)

type LyricsLine struct {
	ID         int64
	TrackID    int64
	OffsetMs   int
	DurationMs int
	Text       string
}

// ReplaceLyrics replaces all lines for trackID with lines, inside one
// transaction, and stamps the track's lyrics_kind. An empty lines slice
// clears the track's lyrics.
func (c *Catalog) ReplaceLyrics(trackID int64, synced bool, lines []LyricsLine) error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lyrics_lines WHERE track_id = $1`, trackID); err != nil {
		return sonarerr.Internal(err)
	}

	for _, l := range lines {
		if _, err := tx.Exec(
			`INSERT INTO lyrics_lines (track_id, offset_ms, duration_ms, text) VALUES ($1, $2, $3, $4)`,
			trackID, l.OffsetMs, l.DurationMs, l.Text); err != nil {
			return sonarerr.Internal(err)
		}
	}

	var kind interface{}
	if len(lines) > 0 {
		if synced {
			kind = "S"
		} else {
			kind = "U"
		}
	}
	if _, err := tx.Exec(`UPDATE tracks SET lyrics_kind = $1 WHERE id = $2`, kind, trackID); err != nil {
		if isForeignKeyViolation(err) {
			return sonarerr.NotFound("track", "")
		}
		return sonarerr.Internal(err)
	}

	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

// ListLyrics returns a track's lines ordered by offset ascending, per
// spec §4.2's pagination/ordering rules for lyrics lines.
func (c *Catalog) ListLyrics(trackID int64) ([]LyricsLine, error) {
	rows, err := c.db.Query(
		`SELECT id, track_id, offset_ms, duration_ms, text FROM lyrics_lines
		 WHERE track_id = $1 ORDER BY offset_ms ASC`, trackID)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var lines []LyricsLine
	for rows.Next() {
		var l LyricsLine
		if err := rows.Scan(&l.ID, &l.TrackID, &l.OffsetMs, &l.DurationMs, &l.Text); err != nil {
			return nil, sonarerr.Internal(err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}
