// Package importpipeline implements Sonar's streaming ingestion
// algorithm: materialize a byte stream into the blob store, extract its
// tags and technical audio properties, then resolve-or-create the
// artist/album/track chain and attach the audio — all inside one catalog
// transaction, grounded on this codebase's get-or-create-in-tx scanning
// pattern but operating on an in-memory stream instead of a directory
// walk.
package importpipeline

import (
	"bytes"
	"database/sql"
	"io"
	"strconv"

	"sonar/internal/blob"
	"sonar/internal/capability"
	"sonar/internal/catalog"
	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

// Hints are the caller-supplied trailing directives an import stream may
// carry: an already-known artist/album to attach to, and the original
// filepath (used only as a title fallback and for the Audio.filename
// column).
type Hints struct {
	Filepath string
	ArtistID sql.NullInt64
	AlbumID  sql.NullInt64
}

// Result reports the fully linked entities an import produced or reused.
type Result struct {
	Blob       blob.Info
	Artist     *catalog.Artist
	Album      *catalog.Album
	Track      *catalog.Track
	Audio      *catalog.Audio
	TrackAudio *catalog.TrackAudio
}

type Pipeline struct {
	blobs   *blob.Store
	cat     *catalog.Catalog
	db      *sql.DB
	tagEx   capability.TagExtractor
	audioEx capability.AudioExtractor
}

func New(blobs *blob.Store, cat *catalog.Catalog, db *sql.DB, tagEx capability.TagExtractor, audioEx capability.AudioExtractor) *Pipeline {
	return &Pipeline{blobs: blobs, cat: cat, db: db, tagEx: tagEx, audioEx: audioEx}
}

// Import runs the full algorithm from spec §4.10 over a stream of chunks.
// The blob is materialized (and thus durable) before the catalog
// transaction opens; if any later step fails, the blob remains on disk
// and is reclaimed by the next garbage-collection sweep rather than
// rolled back.
func (p *Pipeline) Import(chunks io.Reader, mime string, hints Hints) (*Result, error) {
	data, err := io.ReadAll(chunks)
	if err != nil {
		return nil, sonarerr.IoError(err)
	}

	info, err := p.blobs.Put(bytes.NewReader(data))
	if err != nil {
		return nil, sonarerr.IoError(err)
	}

	tags, err := p.tagEx.ExtractTags(data)
	if err != nil {
		return nil, err
	}

	var coverInfo blob.Info
	var haveCover bool
	if len(tags.CoverBytes) > 0 {
		coverInfo, err = p.blobs.Put(bytes.NewReader(tags.CoverBytes))
		if err != nil {
			return nil, sonarerr.IoError(err)
		}
		haveCover = true
	}
	props, err := p.audioEx.ExtractProperties(mime, data)
	if err != nil {
		return nil, err
	}

	title := tags.Title
	if title == "" {
		title = hints.Filepath
	}
	if title == "" {
		title = "Unknown Track"
	}
	artistName := tags.ArtistName
	if artistName == "" {
		artistName = "Unknown Artist"
	}
	albumName := tags.AlbumName
	if albumName == "" {
		albumName = "Unknown Album"
	}

	tx, err := p.db.Begin()
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	defer tx.Rollback()

	blobRow, err := upsertBlobTx(tx, info)
	if err != nil {
		return nil, err
	}

	artistID, err := resolveArtist(tx, hints.ArtistID, artistName)
	if err != nil {
		return nil, err
	}
	albumID, albumCreated, err := resolveAlbum(tx, hints.AlbumID, artistID, albumName)
	if err != nil {
		return nil, err
	}
	trackID, _, err := resolveTrack(tx, albumID, title)
	if err != nil {
		return nil, err
	}

	audioID, err := insertAudioTx(tx, blobRow, mime, props, hints.Filepath)
	if err != nil {
		return nil, err
	}
	trackAudio, err := attachTrackAudioTx(tx, trackID, audioID)
	if err != nil {
		return nil, err
	}

	// Cover art: only applied when creating a new album and tags carry
	// one, per spec §4.10 step 6.
	if albumCreated && haveCover {
		if err := attachAlbumCoverTx(tx, albumID, coverInfo, tags.CoverMime); err != nil {
			return nil, err
		}
	}

	if err := writeImportProperties(tx, trackID, tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, sonarerr.Internal(err)
	}

	artist, err := p.cat.GetArtist(artistID)
	if err != nil {
		return nil, err
	}
	album, err := p.cat.GetAlbum(albumID)
	if err != nil {
		return nil, err
	}
	track, err := p.cat.GetTrack(trackID)
	if err != nil {
		return nil, err
	}
	audio, err := p.cat.GetAudio(audioID)
	if err != nil {
		return nil, err
	}

	return &Result{
		Blob: info, Artist: artist, Album: album, Track: track, Audio: audio, TrackAudio: trackAudio,
	}, nil
}

func upsertBlobTx(tx *sql.Tx, info blob.Info) (int64, error) {
	var id int64
	err := tx.QueryRow(`
		INSERT INTO blobs (key, size, sha256) VALUES ($1, $2, $3)
		ON CONFLICT (sha256) DO UPDATE SET key = blobs.key RETURNING id`,
		info.Key, info.Size, info.SHA256).Scan(&id)
	if err != nil {
		return 0, sonarerr.Internal(err)
	}
	return id, nil
}

func resolveArtist(tx *sql.Tx, hintID sql.NullInt64, name string) (int64, error) {
	if hintID.Valid {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM artists WHERE id = $1)`, hintID.Int64).Scan(&exists); err != nil {
			return 0, sonarerr.Internal(err)
		}
		if !exists {
			return 0, sonarerr.NotFound("artist", "")
		}
		return hintID.Int64, nil
	}

	var id int64
	err := tx.QueryRow(`SELECT id FROM artists WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		if err := tx.QueryRow(`INSERT INTO artists (name) VALUES ($1) RETURNING id`, name).Scan(&id); err != nil {
			return 0, sonarerr.Internal(err)
		}
		return id, nil
	}
	if err != nil {
		return 0, sonarerr.Internal(err)
	}
	return id, nil
}

func resolveAlbum(tx *sql.Tx, hintID sql.NullInt64, artistID int64, name string) (id int64, created bool, err error) {
	if hintID.Valid {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM albums WHERE id = $1)`, hintID.Int64).Scan(&exists); err != nil {
			return 0, false, sonarerr.Internal(err)
		}
		if !exists {
			return 0, false, sonarerr.NotFound("album", "")
		}
		return hintID.Int64, false, nil
	}

	err = tx.QueryRow(`SELECT id FROM albums WHERE artist_id = $1 AND name = $2`, artistID, name).Scan(&id)
	if err == sql.ErrNoRows {
		if insErr := tx.QueryRow(
			`INSERT INTO albums (name, artist_id) VALUES ($1, $2) RETURNING id`, name, artistID,
		).Scan(&id); insErr != nil {
			return 0, false, sonarerr.Internal(insErr)
		}
		return id, true, nil
	}
	if err != nil {
		return 0, false, sonarerr.Internal(err)
	}
	return id, false, nil
}

// resolveTrack looks up (album, title), creating the track if absent;
// existed reports whether it was found rather than created.
func resolveTrack(tx *sql.Tx, albumID int64, title string) (id int64, existed bool, err error) {
	err = tx.QueryRow(`SELECT id FROM tracks WHERE album_id = $1 AND name = $2`, albumID, title).Scan(&id)
	if err == sql.ErrNoRows {
		if insErr := tx.QueryRow(
			`INSERT INTO tracks (name, album_id) VALUES ($1, $2) RETURNING id`, title, albumID,
		).Scan(&id); insErr != nil {
			return 0, false, sonarerr.Internal(insErr)
		}
		return id, false, nil
	}
	if err != nil {
		return 0, false, sonarerr.Internal(err)
	}
	return id, true, nil
}

func insertAudioTx(tx *sql.Tx, blobID int64, mime string, props capability.AudioProperties, filename string) (int64, error) {
	var fn sql.NullString
	if filename != "" {
		fn = sql.NullString{String: filename, Valid: true}
	}
	var id int64
	err := tx.QueryRow(`
		INSERT INTO audios (blob_id, mime_type, bitrate, duration_ms, channels, sample_freq, filename)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		blobID, mime, props.Bitrate, props.DurationMs, props.Channels, props.SampleFreq, fn,
	).Scan(&id)
	if err != nil {
		return 0, sonarerr.Internal(err)
	}
	return id, nil
}

// attachTrackAudioTx mirrors catalog.AttachTrackAudio's preferred-flag
// logic but runs against the pipeline's own transaction.
func attachTrackAudioTx(tx *sql.Tx, trackID, audioID int64) (*catalog.TrackAudio, error) {
	var hasPreferred bool
	if err := tx.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM track_audios WHERE track_id = $1 AND preferred)`, trackID,
	).Scan(&hasPreferred); err != nil {
		return nil, sonarerr.Internal(err)
	}

	ta := &catalog.TrackAudio{TrackID: trackID, AudioID: audioID, Preferred: !hasPreferred}
	_, err := tx.Exec(
		`INSERT INTO track_audios (track_id, audio_id, preferred) VALUES ($1, $2, $3)
		 ON CONFLICT (track_id, audio_id) DO NOTHING`,
		trackID, audioID, ta.Preferred)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return ta, nil
}

func attachAlbumCoverTx(tx *sql.Tx, albumID int64, coverInfo blob.Info, coverMime string) error {
	var hasCover bool
	if err := tx.QueryRow(`SELECT cover_image_id IS NOT NULL FROM albums WHERE id = $1`, albumID).Scan(&hasCover); err != nil {
		return sonarerr.Internal(err)
	}
	if hasCover {
		return nil
	}
	if coverMime == "" {
		coverMime = "image/jpeg"
	}

	blobID, err := upsertBlobTx(tx, coverInfo)
	if err != nil {
		return err
	}

	var imageID int64
	if err := tx.QueryRow(
		`INSERT INTO images (blob_id, mime_type) VALUES ($1, $2) RETURNING id`, blobID, coverMime,
	).Scan(&imageID); err != nil {
		return sonarerr.Internal(err)
	}
	if _, err := tx.Exec(`UPDATE albums SET cover_image_id = $1 WHERE id = $2`, imageID, albumID); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

func writeImportProperties(tx *sql.Tx, trackID int64, tags capability.Tags) error {
	write := func(key, value string) error {
		if value == "" {
			return nil
		}
		_, err := tx.Exec(`
			INSERT INTO properties (namespace, identifier, key, user_id, value) VALUES ($1, $2, $3, NULL, $4)
			ON CONFLICT (namespace, identifier, key) WHERE user_id IS NULL DO UPDATE SET value = EXCLUDED.value`,
			id.NamespaceTrack, trackID, key, value)
		return err
	}

	if tags.TrackNumber > 0 {
		if err := write("sonar.io/track-number", strconv.Itoa(tags.TrackNumber)); err != nil {
			return sonarerr.Internal(err)
		}
	}
	if tags.DiscNumber > 0 {
		if err := write("sonar.io/disc-number", strconv.Itoa(tags.DiscNumber)); err != nil {
			return sonarerr.Internal(err)
		}
	}
	for k, v := range tags.AdditionalProperties {
		if err := write(k, v); err != nil {
			return sonarerr.Internal(err)
		}
	}
	return nil
}
