// Package scrobble implements Sonar's listen-event recording: creating and
// deleting scrobbles while keeping track/album/artist listen counts in
// sync, and fanning successful scrobbles out to registered external
// Scrobbler capabilities.
package scrobble

import (
	"context"
	"database/sql"
	"log"
	"time"

	"sonar/internal/capability"
	"sonar/internal/catalog"
)

type Service struct {
	cat        *catalog.Catalog
	scrobblers []capability.Scrobbler
}

func New(cat *catalog.Catalog, scrobblers ...capability.Scrobbler) *Service {
	return &Service{cat: cat, scrobblers: scrobblers}
}

// Create records a listen and bumps the track/album/artist counters in
// one transaction, then best-effort submits to every registered external
// scrobbler — a submission failure is logged, never surfaced to the
// caller, since the local scrobble already committed.
func (s *Service) Create(userID, trackID int64, at time.Time, listenDurationMs int64, device sql.NullString) (*catalog.Scrobble, error) {
	sc, err := s.cat.CreateScrobble(userID, trackID, at, listenDurationMs, device)
	if err != nil {
		return nil, err
	}

	if len(s.scrobblers) > 0 {
		go s.submitExternal(sc.ID, trackID, at)
	}
	return sc, nil
}

// submitExternal fans a committed scrobble out to every registered
// external scrobbler and records each pair in scrobble_submissions, per
// the ScrobbleSubmission entity's "which external scrobbler consumed it"
// contract — a submission failure is logged but not recorded. Each
// scrobble is fanned out once, from Create; nothing re-submits it.
func (s *Service) submitExternal(scrobbleID, trackID int64, at time.Time) {
	track, err := s.cat.GetTrack(trackID)
	if err != nil {
		log.Printf("scrobble: resolving track %d for external submission: %v", trackID, err)
		return
	}
	album, err := s.cat.GetAlbum(track.AlbumID)
	if err != nil {
		log.Printf("scrobble: resolving album %d for external submission: %v", track.AlbumID, err)
		return
	}
	artist, err := s.cat.GetArtist(album.ArtistID)
	if err != nil {
		log.Printf("scrobble: resolving artist %d for external submission: %v", album.ArtistID, err)
		return
	}

	ev := capability.ScrobbleEvent{
		ArtistName: artist.Name, AlbumName: album.Name, TrackName: track.Name, Timestamp: at,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, sc := range s.scrobblers {
		if err := sc.Submit(ctx, ev); err != nil {
			log.Printf("scrobble: submitting to %s failed: %v", sc.Name(), err)
			continue
		}
		if err := s.cat.RecordScrobbleSubmission(scrobbleID, sc.Name()); err != nil {
			log.Printf("scrobble: recording submission to %s failed: %v", sc.Name(), err)
		}
	}
}

// Delete reverses a scrobble's counter contribution.
func (s *Service) Delete(id int64) error {
	return s.cat.DeleteScrobble(id)
}

func (s *Service) ListByUser(userID int64, page catalog.Page) ([]*catalog.Scrobble, error) {
	return s.cat.ListScrobblesByUser(userID, page)
}
