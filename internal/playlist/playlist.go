// Package playlist implements Sonar's Playlist Engine: owner-scoped
// ordered track sets atop the catalog's playlist tables.
package playlist

import "sonar/internal/catalog"

type Service struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Service {
	return &Service{cat: cat}
}

func (s *Service) Create(ownerID int64, name string) (*catalog.Playlist, error) {
	return s.cat.CreatePlaylist(ownerID, name)
}

func (s *Service) Get(id int64) (*catalog.Playlist, error) {
	return s.cat.GetPlaylist(id)
}

func (s *Service) ListByOwner(ownerID int64, page catalog.Page) ([]*catalog.Playlist, error) {
	return s.cat.ListPlaylistsByOwner(ownerID, page)
}

func (s *Service) Update(id int64, patch catalog.UpdatePlaylistPatch) (*catalog.Playlist, error) {
	return s.cat.UpdatePlaylist(id, patch)
}

func (s *Service) Delete(id int64) error {
	return s.cat.DeletePlaylist(id)
}

func (s *Service) Duplicate(ownerID, sourceID int64, newName string) (*catalog.Playlist, error) {
	return s.cat.DuplicatePlaylist(ownerID, sourceID, newName)
}

func (s *Service) TrackList(playlistID int64) ([]catalog.PlaylistTrack, error) {
	return s.cat.ListPlaylistTracks(playlistID)
}

// TrackInsert appends trackIDs in order; a track already present is
// skipped, so re-inserting one is a no-op and duplicates never appear.
func (s *Service) TrackInsert(playlistID int64, trackIDs []int64) ([]catalog.PlaylistTrack, error) {
	return s.cat.InsertPlaylistTracks(playlistID, trackIDs)
}

func (s *Service) TrackRemove(playlistID int64, trackIDs []int64) error {
	return s.cat.RemovePlaylistTracks(playlistID, trackIDs)
}

func (s *Service) TrackClear(playlistID int64) error {
	return s.cat.ClearPlaylistTracks(playlistID)
}
