package rpc

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"sonar/internal/capability"
	"sonar/internal/catalog"
	"sonar/internal/id"
)

// nullInt64ID encodes a nullable internal key as an opaque ID, or nil
// when the column is NULL (e.g. an artist/track with no cover).
func nullInt64ID(ns id.Namespace, v sql.NullInt64) any {
	if !v.Valid {
		return nil
	}
	return id.Encode(ns, v.Int64)
}

func nullString(v sql.NullString) any {
	if !v.Valid {
		return nil
	}
	return v.String
}

func artistDTO(a *catalog.Artist) gin.H {
	return gin.H{
		"id":           id.Encode(id.NamespaceArtist, a.ID),
		"name":         a.Name,
		"listen_count": a.ListenCount,
		"cover_id":     nullInt64ID(id.NamespaceImage, a.CoverImageID),
		"album_count":  a.AlbumCount,
	}
}

func albumDTO(al *catalog.Album) gin.H {
	return gin.H{
		"id":           id.Encode(id.NamespaceAlbum, al.ID),
		"name":         al.Name,
		"artist_id":    id.Encode(id.NamespaceArtist, al.ArtistID),
		"listen_count": al.ListenCount,
		"cover_id":     nullInt64ID(id.NamespaceImage, al.CoverImageID),
		"track_count":  al.TrackCount,
		"duration_ms":  al.DurationMs,
	}
}

func trackDTO(t *catalog.Track) gin.H {
	return gin.H{
		"id":                 id.Encode(id.NamespaceTrack, t.ID),
		"name":               t.Name,
		"album_id":           id.Encode(id.NamespaceAlbum, t.AlbumID),
		"listen_count":       t.ListenCount,
		"cover_id":           nullInt64ID(id.NamespaceImage, t.CoverImageID),
		"lyrics_kind":        nullString(t.LyricsKind),
		"duration_ms":        t.DurationMs,
		"preferred_audio_id": nullInt64ID(id.NamespaceAudio, t.PreferredAudioID),
	}
}

func audioDTO(a *catalog.Audio) gin.H {
	return gin.H{
		"id":          id.Encode(id.NamespaceAudio, a.ID),
		"mime":        a.Mime,
		"bitrate":     a.Bitrate,
		"duration_ms": a.DurationMs,
		"channels":    a.Channels,
		"sample_freq": a.SampleFreq,
		"filename":    nullString(a.Filename),
	}
}

func imageDTO(img *catalog.Image) gin.H {
	return gin.H{
		"id":   id.Encode(id.NamespaceImage, img.ID),
		"mime": img.Mime,
	}
}

func playlistDTO(p *catalog.Playlist) gin.H {
	return gin.H{
		"id":          id.Encode(id.NamespacePlaylist, p.ID),
		"owner_id":    id.Encode(id.NamespaceUser, p.OwnerID),
		"name":        p.Name,
		"cover_id":    nullInt64ID(id.NamespaceImage, p.CoverImageID),
		"track_count": p.TrackCount,
		"duration_ms": p.DurationMs,
	}
}

func playlistTrackDTO(pt catalog.PlaylistTrack) gin.H {
	return gin.H{
		"track_id":    id.Encode(id.NamespaceTrack, pt.TrackID),
		"position":    pt.Position,
		"inserted_at": pt.InsertedAt,
	}
}

func userDTO(u *catalog.User) gin.H {
	return gin.H{
		"id":         id.Encode(id.NamespaceUser, u.ID),
		"username":   u.Username,
		"avatar_id":  nullInt64ID(id.NamespaceImage, u.AvatarImageID),
		"is_admin":   u.IsAdmin,
		"created_at": u.CreatedAt,
	}
}

func scrobbleDTO(s *catalog.Scrobble) gin.H {
	return gin.H{
		"id":                 id.Encode(id.NamespaceScrobble, s.ID),
		"user_id":            id.Encode(id.NamespaceUser, s.UserID),
		"track_id":           id.Encode(id.NamespaceTrack, s.TrackID),
		"listen_at":          s.ListenAt,
		"listen_duration_ms": s.ListenDurationMs,
		"device":             nullString(s.Device),
	}
}

func subscriptionDTO(s *catalog.Subscription) gin.H {
	return gin.H{
		"id":               id.Encode(id.NamespaceSubscription, s.ID),
		"user_id":          id.Encode(id.NamespaceUser, s.UserID),
		"artist_id":        nullInt64ID(id.NamespaceArtist, s.ArtistID),
		"album_id":         nullInt64ID(id.NamespaceAlbum, s.AlbumID),
		"track_id":         nullInt64ID(id.NamespaceTrack, s.TrackID),
		"playlist_id":      nullInt64ID(id.NamespacePlaylist, s.PlaylistID),
		"external_id":      nullString(s.ExternalID),
		"media_type":       s.MediaType,
		"interval_seconds": s.IntervalSeconds,
		"last_submitted":   nullTime(s.LastSubmitted),
		"description":      nullString(s.Description),
		"backoff_seconds":  s.BackoffSeconds,
	}
}

func nullTime(v sql.NullTime) any {
	if !v.Valid {
		return nil
	}
	return v.Time
}

func favoriteDTO(f catalog.Favorite) gin.H {
	return gin.H{
		"item_id": id.Encode(f.Namespace, f.Identifier),
	}
}

func pinDTO(p catalog.Pin) gin.H {
	return gin.H{
		"item_id": id.Encode(p.Namespace, p.Identifier),
	}
}

func lyricsLineDTO(l catalog.LyricsLine) gin.H {
	return gin.H{
		"offset_ms":   l.OffsetMs,
		"duration_ms": l.DurationMs,
		"text":        l.Text,
	}
}

func metadataPatchDTO(p capability.MetadataPatch) gin.H {
	return gin.H{
		"name":       p.Name,
		"properties": p.Properties,
		"has_cover":  len(p.CoverBytes) > 0,
	}
}
