package subsonic

import (
	"database/sql"
	"testing"

	"sonar/internal/catalog"
	"sonar/internal/id"
)

func TestToSubsonicArtistEncodesID(t *testing.T) {
	a := &catalog.Artist{ID: 5, Name: "Radiohead", AlbumCount: 3}
	out := toSubsonicArtist(a, nil)
	if out.ID != id.Encode(id.NamespaceArtist, 5) {
		t.Errorf("ID = %q, want %q", out.ID, id.Encode(id.NamespaceArtist, 5))
	}
	if out.Name != "Radiohead" || out.AlbumCount != 3 {
		t.Errorf("toSubsonicArtist() = %+v, unexpected fields", out)
	}
	if out.CoverArt != "" {
		t.Errorf("CoverArt = %q, want empty when CoverImageID is not valid", out.CoverArt)
	}
}

func TestToSubsonicArtistWithCover(t *testing.T) {
	a := &catalog.Artist{ID: 5, Name: "Radiohead", CoverImageID: sql.NullInt64{Int64: 9, Valid: true}}
	out := toSubsonicArtist(a, nil)
	if out.CoverArt != id.Encode(id.NamespaceImage, 9) {
		t.Errorf("CoverArt = %q, want %q", out.CoverArt, id.Encode(id.NamespaceImage, 9))
	}
}

func TestToSubsonicAlbumDurationInSeconds(t *testing.T) {
	al := &catalog.Album{ID: 1, Name: "OK Computer", ArtistID: 5, TrackCount: 12, DurationMs: 2730000}
	out := toSubsonicAlbum(al, nil, "Radiohead")
	if out.Duration != 2730 {
		t.Errorf("Duration = %d, want 2730 (seconds)", out.Duration)
	}
	if out.ArtistID != id.Encode(id.NamespaceArtist, 5) {
		t.Errorf("ArtistID = %q, want %q", out.ArtistID, id.Encode(id.NamespaceArtist, 5))
	}
}

func TestToSubsonicSongFields(t *testing.T) {
	tr := &catalog.Track{ID: 10, Name: "Paranoid Android", AlbumID: 1, DurationMs: 383000}
	out := toSubsonicSong(tr, "OK Computer", "Radiohead")
	if out.Title != "Paranoid Android" || out.Album != "OK Computer" || out.Artist != "Radiohead" {
		t.Errorf("toSubsonicSong() = %+v, unexpected fields", out)
	}
	if out.Duration != 383 {
		t.Errorf("Duration = %d, want 383", out.Duration)
	}
	if out.Parent != id.Encode(id.NamespaceAlbum, 1) {
		t.Errorf("Parent = %q, want album id", out.Parent)
	}
}

func TestToSubsonicPlaylistCarriesEntries(t *testing.T) {
	p := &catalog.Playlist{ID: 2, Name: "Road Trip", TrackCount: 1, DurationMs: 200000}
	songs := []Song{{ID: id.Encode(id.NamespaceTrack, 10), Title: "One Song"}}
	out := toSubsonicPlaylist(p, "alice", songs)
	if out.Owner != "alice" || len(out.Entry) != 1 || out.Entry[0].Title != "One Song" {
		t.Errorf("toSubsonicPlaylist() = %+v, unexpected fields", out)
	}
	if out.Duration != 200 {
		t.Errorf("Duration = %d, want 200", out.Duration)
	}
}
