package subsonic

import (
	"sonar/internal/catalog"
	"sonar/internal/id"
)

func toSubsonicArtist(a *catalog.Artist, albums []Album) Artist {
	out := Artist{
		ID:         id.Encode(id.NamespaceArtist, a.ID),
		Name:       a.Name,
		AlbumCount: a.AlbumCount,
		Album:      albums,
	}
	if a.CoverImageID.Valid {
		out.CoverArt = id.Encode(id.NamespaceImage, a.CoverImageID.Int64)
	}
	return out
}

func toSubsonicAlbum(al *catalog.Album, songs []Song, artistName string) Album {
	out := Album{
		ID:        id.Encode(id.NamespaceAlbum, al.ID),
		Name:      al.Name,
		Artist:    artistName,
		ArtistID:  id.Encode(id.NamespaceArtist, al.ArtistID),
		SongCount: al.TrackCount,
		Duration:  int(al.DurationMs / 1000),
		Song:      songs,
	}
	if al.CoverImageID.Valid {
		out.CoverArt = id.Encode(id.NamespaceImage, al.CoverImageID.Int64)
	}
	return out
}

func toSubsonicSong(t *catalog.Track, albumName, artistName string) Song {
	out := Song{
		ID:       id.Encode(id.NamespaceTrack, t.ID),
		Parent:   id.Encode(id.NamespaceAlbum, t.AlbumID),
		Title:    t.Name,
		Album:    albumName,
		AlbumID:  id.Encode(id.NamespaceAlbum, t.AlbumID),
		Artist:   artistName,
		Duration: int(t.DurationMs / 1000),
	}
	if t.CoverImageID.Valid {
		out.CoverArt = id.Encode(id.NamespaceImage, t.CoverImageID.Int64)
	}
	return out
}

func toSubsonicPlaylist(p *catalog.Playlist, owner string, entries []Song) Playlist {
	return Playlist{
		ID:        id.Encode(id.NamespacePlaylist, p.ID),
		Name:      p.Name,
		Owner:     owner,
		SongCount: p.TrackCount,
		Duration:  int(p.DurationMs / 1000),
		Entry:     entries,
	}
}
