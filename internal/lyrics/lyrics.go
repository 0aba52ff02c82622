// Package lyrics implements Sonar's Lyrics Service: a thin wrapper over
// the catalog's synced/unsynced line storage for a track.
package lyrics

import "sonar/internal/catalog"

type Service struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Service {
	return &Service{cat: cat}
}

// Replace stores lines for trackID as synced (offset+duration meaningful)
// or unsynced lyrics. An empty lines slice clears the track's lyrics.
func (s *Service) Replace(trackID int64, synced bool, lines []catalog.LyricsLine) error {
	return s.cat.ReplaceLyrics(trackID, synced, lines)
}

func (s *Service) List(trackID int64) ([]catalog.LyricsLine, error) {
	return s.cat.ListLyrics(trackID)
}
