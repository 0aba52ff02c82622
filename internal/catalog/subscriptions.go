package catalog

import (
	"database/sql"
	"time"

	"sonar/internal/sonarerr"
)

// MediaType enumerates the kinds of entity a Subscription can target.
type MediaType string

const (
	MediaArtist   MediaType = "artist"
	MediaAlbum    MediaType = "album"
	MediaTrack    MediaType = "track"
	MediaPlaylist MediaType = "playlist"
)

type Subscription struct {
	ID              int64
	UserID          int64
	ArtistID        sql.NullInt64
	AlbumID         sql.NullInt64
	TrackID         sql.NullInt64
	PlaylistID      sql.NullInt64
	ExternalID      sql.NullString
	MediaType       MediaType
	IntervalSeconds int
	LastSubmitted   sql.NullTime
	Description     sql.NullString
	BackoffSeconds  int
}

type NewSubscription struct {
	UserID          int64
	ArtistID        sql.NullInt64
	AlbumID         sql.NullInt64
	TrackID         sql.NullInt64
	PlaylistID      sql.NullInt64
	ExternalID      sql.NullString
	MediaType       MediaType
	IntervalSeconds int
	Description     sql.NullString
}

// CreateSubscription requires at least one selector field set, per the
// Subscription invariant in spec §3.
func (c *Catalog) CreateSubscription(s NewSubscription) (*Subscription, error) {
	if !s.ArtistID.Valid && !s.AlbumID.Valid && !s.TrackID.Valid && !s.PlaylistID.Valid && !s.ExternalID.Valid {
		return nil, sonarerr.InvalidArgument("subscription", "at least one selector field must be set")
	}

	sub := &Subscription{
		UserID: s.UserID, ArtistID: s.ArtistID, AlbumID: s.AlbumID, TrackID: s.TrackID,
		PlaylistID: s.PlaylistID, ExternalID: s.ExternalID, MediaType: s.MediaType,
		IntervalSeconds: s.IntervalSeconds, Description: s.Description,
	}
	err := c.db.QueryRow(`
		INSERT INTO subscriptions
			(user_id, artist_id, album_id, track_id, playlist_id, external_id, media_type, interval_seconds, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		s.UserID, s.ArtistID, s.AlbumID, s.TrackID, s.PlaylistID, s.ExternalID, string(s.MediaType), s.IntervalSeconds, s.Description,
	).Scan(&sub.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, sonarerr.NotFound("referenced entity", "")
		}
		return nil, sonarerr.Internal(err)
	}
	return sub, nil
}

const subscriptionSelect = `
	SELECT id, user_id, artist_id, album_id, track_id, playlist_id, external_id, media_type,
	       interval_seconds, last_submitted, description, backoff_seconds
	FROM subscriptions`

func (c *Catalog) GetSubscription(id int64) (*Subscription, error) {
	s := &Subscription{}
	var mediaType string
	err := c.db.QueryRow(subscriptionSelect+` WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.ArtistID, &s.AlbumID, &s.TrackID, &s.PlaylistID, &s.ExternalID,
		&mediaType, &s.IntervalSeconds, &s.LastSubmitted, &s.Description, &s.BackoffSeconds)
	if err == sql.ErrNoRows {
		return nil, sonarerr.NotFound("subscription", "")
	}
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	s.MediaType = MediaType(mediaType)
	return s, nil
}

func (c *Catalog) ListSubscriptionsByUser(userID int64, page Page) ([]*Subscription, error) {
	rows, err := c.db.Query(subscriptionSelect+` WHERE user_id = $1 ORDER BY id ASC OFFSET $2 LIMIT $3`,
		userID, page.Offset, page.Count)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return scanSubscriptions(rows)
}

// DueSubscriptions returns subscriptions whose last_submitted is unset or
// whose elapsed time since last_submitted is at least interval+backoff
// seconds, for the background scheduler (§5).
func (c *Catalog) DueSubscriptions(now time.Time, limit int) ([]*Subscription, error) {
	rows, err := c.db.Query(subscriptionSelect+`
		WHERE last_submitted IS NULL
		   OR $1 - last_submitted >= (interval_seconds + backoff_seconds) * INTERVAL '1 second'
		ORDER BY id ASC LIMIT $2`, now, limit)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	return scanSubscriptions(rows)
}

func scanSubscriptions(rows *sql.Rows) ([]*Subscription, error) {
	defer rows.Close()
	var subs []*Subscription
	for rows.Next() {
		s := &Subscription{}
		var mediaType string
		if err := rows.Scan(&s.ID, &s.UserID, &s.ArtistID, &s.AlbumID, &s.TrackID, &s.PlaylistID, &s.ExternalID,
			&mediaType, &s.IntervalSeconds, &s.LastSubmitted, &s.Description, &s.BackoffSeconds); err != nil {
			return nil, sonarerr.Internal(err)
		}
		s.MediaType = MediaType(mediaType)
		subs = append(subs, s)
	}
	return subs, nil
}

// MarkSubscriptionSubmitted stamps last_submitted and resets backoff after
// a successful SubscriptionSubmit.
func (c *Catalog) MarkSubscriptionSubmitted(id int64, at time.Time) error {
	res, err := c.db.Exec(`UPDATE subscriptions SET last_submitted = $1, backoff_seconds = 0 WHERE id = $2`, at, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("subscription", "")
	}
	return nil
}

// MarkSubscriptionFailed doubles the backoff (capped at interval_seconds),
// per §4.9/§5's "retried on next tick with exponential backoff capped at
// interval" rule.
func (c *Catalog) MarkSubscriptionFailed(id int64) error {
	res, err := c.db.Exec(`
		UPDATE subscriptions
		SET backoff_seconds = LEAST(
			interval_seconds,
			GREATEST(1, backoff_seconds * 2)
		)
		WHERE id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("subscription", "")
	}
	return nil
}

func (c *Catalog) DeleteSubscription(id int64) error {
	res, err := c.db.Exec(`DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return sonarerr.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sonarerr.NotFound("subscription", "")
	}
	return nil
}
