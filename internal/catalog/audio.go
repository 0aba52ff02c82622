package catalog

import (
	"database/sql"

	"sonar/internal/sonarerr"
)

type Audio struct {
	ID          int64
	BlobID      int64
	Mime        string
	Bitrate     int
	DurationMs  int
	Channels    int
	SampleFreq  int
	Filename    sql.NullString
}

type AudioAttrs struct {
	Mime       string
	Bitrate    int
	DurationMs int
	Channels   int
	SampleFreq int
	Filename   string
}

func (c *Catalog) CreateAudio(blobID int64, attrs AudioAttrs) (*Audio, error) {
	a := &Audio{BlobID: blobID, Mime: attrs.Mime, Bitrate: attrs.Bitrate,
		DurationMs: attrs.DurationMs, Channels: attrs.Channels, SampleFreq: attrs.SampleFreq}
	var filename sql.NullString
	if attrs.Filename != "" {
		filename = sql.NullString{String: attrs.Filename, Valid: true}
	}
	err := c.db.QueryRow(
		`INSERT INTO audios (blob_id, mime_type, bitrate, duration_ms, channels, sample_freq, filename)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		blobID, attrs.Mime, attrs.Bitrate, attrs.DurationMs, attrs.Channels, attrs.SampleFreq, filename,
	).Scan(&a.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("blob", "")
		}
		return nil, sonarerr.Internal(err)
	}
	a.Filename = filename
	return a, nil
}

func (c *Catalog) GetAudio(id int64) (*Audio, error) {
	a := &Audio{}
	err := c.db.QueryRow(
		`SELECT id, blob_id, mime_type, bitrate, duration_ms, channels, sample_freq, filename
		 FROM audios WHERE id = $1`, id,
	).Scan(&a.ID, &a.BlobID, &a.Mime, &a.Bitrate, &a.DurationMs, &a.Channels, &a.SampleFreq, &a.Filename)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("audio", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return a, nil
}

// TrackAudio is one (track, audio, preferred?) row.
type TrackAudio struct {
	TrackID   int64
	AudioID   int64
	Preferred bool
}

// AttachTrackAudio links audioID to trackID. If the track has no
// preferred audio yet, the new row becomes preferred; otherwise it's
// attached as an additional, non-preferred variant (the import pipeline's
// "existing track, new audio" case). Runs inside tx so it composes with
// the caller's larger transaction (import, MergeTrackAudio).
func (c *Catalog) AttachTrackAudio(tx *sql.Tx, trackID, audioID int64) (*TrackAudio, error) {
	var hasPreferred bool
	err := tx.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM track_audios WHERE track_id = $1 AND preferred)`, trackID,
	).Scan(&hasPreferred)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}

	ta := &TrackAudio{TrackID: trackID, AudioID: audioID, Preferred: !hasPreferred}
	_, err = tx.Exec(
		`INSERT INTO track_audios (track_id, audio_id, preferred) VALUES ($1, $2, $3)
		 ON CONFLICT (track_id, audio_id) DO NOTHING`,
		trackID, audioID, ta.Preferred)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("track", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return ta, nil
}

// SetPreferredAudio makes audioID the sole preferred TrackAudio row for
// trackID, the explicit preferred-reassignment operation from spec §4.6.
func (c *Catalog) SetPreferredAudio(trackID, audioID int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return sonarerr.Internal(err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE track_audios SET preferred = FALSE WHERE track_id = $1`, trackID); err != nil {
		return sonarerr.Internal(err)
	}
	res, err := tx.Exec(
		`UPDATE track_audios SET preferred = TRUE WHERE track_id = $1 AND audio_id = $2`,
		trackID, audioID)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("track_audio", "")
	}
	if err := tx.Commit(); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

// PreferredAudio returns the audio row marked preferred for trackID, if
// the track has any audio attached.
func (c *Catalog) PreferredAudio(trackID int64) (*Audio, error) {
	a := &Audio{}
	err := c.db.QueryRow(`
		SELECT au.id, au.blob_id, au.mime_type, au.bitrate, au.duration_ms, au.channels, au.sample_freq, au.filename
		FROM track_audios ta JOIN audios au ON au.id = ta.audio_id
		WHERE ta.track_id = $1 AND ta.preferred`, trackID,
	).Scan(&a.ID, &a.BlobID, &a.Mime, &a.Bitrate, &a.DurationMs, &a.Channels, &a.SampleFreq, &a.Filename)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("track_audio", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return a, nil
}

func (c *Catalog) ListTrackAudios(trackID int64) ([]*TrackAudio, error) {
	rows, err := c.db.Query(
		`SELECT track_id, audio_id, preferred FROM track_audios WHERE track_id = $1 ORDER BY audio_id ASC`, trackID)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer rows.Close()

	var out []*TrackAudio
	for rows.Next() {
		ta := &TrackAudio{}
		if err := rows.Scan(&ta.TrackID, &ta.AudioID, &ta.Preferred); err != nil {
			return nil, sonarerr.Internal(err)
		}
		out = append(out, ta)
	}
	return out, nil
}
