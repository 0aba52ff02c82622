package subsonic

import (
	"database/sql"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"sonar/internal/catalog"
	"sonar/internal/id"
	"sonar/internal/search"
)

const claimsKey = "subsonicUserID"

// authenticate implements OpenSubsonic's token-or-password auth: clients
// send u+p (plaintext password, legacy but still widely supported) or u+t+s
// (salted token, which this adapter cannot verify without a reversible
// password hash and so rejects). A successful u+p exchange resolves to a
// local user ID stashed in the gin context for handlers to read.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Query("u")
		password := c.Query("p")
		if username == "" || password == "" {
			s.sendError(c, 10, "Required parameter 'u'/'p' is missing")
			c.Abort()
			return
		}
		_, user, err := s.engine.Auth.Login(username, password)
		if err != nil {
			s.sendError(c, 40, "Wrong username or password")
			c.Abort()
			return
		}
		c.Set(claimsKey, user.ID)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	v, _ := c.Get(claimsKey)
	uid, _ := v.(int64)
	return uid
}

func (s *Server) ping(c *gin.Context) {
	s.sendResponse(c, nil)
}

func (s *Server) getLicense(c *gin.Context) {
	s.sendResponse(c, func(r *Response) { r.License = &License{Valid: true} })
}

// getArtists groups every artist by the first letter of its name, per
// OpenSubsonic's getArtists contract.
func (s *Server) getArtists(c *gin.Context) {
	artists, err := s.engine.Catalog.ListArtists(catalog.Page{Offset: 0, Count: 5000})
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	byLetter := map[string][]Artist{}
	var letters []string
	for _, a := range artists {
		letter := "#"
		if len(a.Name) > 0 {
			letter = string([]rune(a.Name)[0])
		}
		if _, ok := byLetter[letter]; !ok {
			letters = append(letters, letter)
		}
		byLetter[letter] = append(byLetter[letter], toSubsonicArtist(a, nil))
	}

	var indexes []Index
	for _, letter := range letters {
		indexes = append(indexes, Index{Name: letter, Artist: byLetter[letter]})
	}
	s.sendResponse(c, func(r *Response) { r.Artists = &Artists{Index: indexes} })
}

func (s *Server) getArtist(c *gin.Context) {
	aid, err := id.Decode(id.NamespaceArtist, c.Query("id"))
	if err != nil {
		s.sendError(c, 10, "invalid id")
		return
	}
	a, err := s.engine.Catalog.GetArtist(aid)
	if err != nil {
		s.sendError(c, 70, "artist not found")
		return
	}
	albums, err := s.engine.Catalog.ListAlbumsByArtist(aid, catalog.Page{Offset: 0, Count: 5000})
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	out := toSubsonicArtist(a, nil)
	for _, al := range albums {
		out.Album = append(out.Album, toSubsonicAlbum(al, nil, a.Name))
	}
	s.sendResponse(c, func(r *Response) { r.Artist = &out })
}

func (s *Server) getAlbum(c *gin.Context) {
	alid, err := id.Decode(id.NamespaceAlbum, c.Query("id"))
	if err != nil {
		s.sendError(c, 10, "invalid id")
		return
	}
	al, err := s.engine.Catalog.GetAlbum(alid)
	if err != nil {
		s.sendError(c, 70, "album not found")
		return
	}
	artist, err := s.engine.Catalog.GetArtist(al.ArtistID)
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	tracks, err := s.engine.Catalog.ListTracksByAlbum(alid, catalog.Page{Offset: 0, Count: 5000})
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	out := toSubsonicAlbum(al, nil, artist.Name)
	for _, t := range tracks {
		out.Song = append(out.Song, toSubsonicSong(t, al.Name, artist.Name))
	}
	s.sendResponse(c, func(r *Response) { r.Album = &out })
}

func (s *Server) getSong(c *gin.Context) {
	tid, err := id.Decode(id.NamespaceTrack, c.Query("id"))
	if err != nil {
		s.sendError(c, 10, "invalid id")
		return
	}
	t, err := s.engine.Catalog.GetTrack(tid)
	if err != nil {
		s.sendError(c, 70, "song not found")
		return
	}
	al, err := s.engine.Catalog.GetAlbum(t.AlbumID)
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	artist, err := s.engine.Catalog.GetArtist(al.ArtistID)
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	song := toSubsonicSong(t, al.Name, artist.Name)
	s.sendResponse(c, func(r *Response) { r.Song = &song })
}

func (s *Server) stream(c *gin.Context) {
	tid, err := id.Decode(id.NamespaceTrack, c.Query("id"))
	if err != nil {
		s.sendError(c, 10, "invalid id")
		return
	}
	audio, rc, err := s.engine.Audio.Stream(tid, 0, 0)
	if err != nil {
		s.sendError(c, 70, "song not found")
		return
	}
	defer rc.Close()
	c.Header("Content-Type", audio.Mime)
	io.Copy(c.Writer, rc)
}

func (s *Server) getCoverArt(c *gin.Context) {
	imgID, err := id.Decode(id.NamespaceImage, c.Query("id"))
	if err != nil {
		s.sendError(c, 10, "invalid id")
		return
	}
	img, rc, err := s.engine.Image.Get(imgID)
	if err != nil {
		s.sendError(c, 70, "cover art not found")
		return
	}
	defer rc.Close()
	c.Header("Content-Type", img.Mime)
	io.Copy(c.Writer, rc)
}

func (s *Server) search3(c *gin.Context) {
	query := c.Query("query")
	count := queryInt(c, "artistCount", 20)
	hits, err := s.engine.Search.Search(userID(c), query,
		search.Flags{Artist: true, Album: true, Track: true}, count*3)
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}

	var result SearchResult3
	for _, h := range hits {
		switch v := h.Entity.(type) {
		case *catalog.Artist:
			result.Artist = append(result.Artist, toSubsonicArtist(v, nil))
		case *catalog.Album:
			result.Album = append(result.Album, toSubsonicAlbum(v, nil, ""))
		case *catalog.Track:
			result.Song = append(result.Song, toSubsonicSong(v, "", ""))
		}
	}
	s.sendResponse(c, func(r *Response) { r.SearchResult3 = &result })
}

func (s *Server) getPlaylists(c *gin.Context) {
	lists, err := s.engine.Catalog.ListPlaylistsByOwner(userID(c), catalog.Page{Offset: 0, Count: 500})
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	out := make([]Playlist, len(lists))
	for i, p := range lists {
		out[i] = toSubsonicPlaylist(p, "", nil)
	}
	s.sendResponse(c, func(r *Response) { r.Playlists = &Playlists{Playlist: out} })
}

func (s *Server) getPlaylist(c *gin.Context) {
	pid, err := id.Decode(id.NamespacePlaylist, c.Query("id"))
	if err != nil {
		s.sendError(c, 10, "invalid id")
		return
	}
	p, err := s.engine.Catalog.GetPlaylist(pid)
	if err != nil {
		s.sendError(c, 70, "playlist not found")
		return
	}
	entries, err := s.engine.Catalog.ListPlaylistTracks(pid)
	if err != nil {
		s.sendError(c, 0, "database error")
		return
	}
	var songs []Song
	for _, pt := range entries {
		t, err := s.engine.Catalog.GetTrack(pt.TrackID)
		if err != nil {
			continue
		}
		songs = append(songs, toSubsonicSong(t, "", ""))
	}
	out := toSubsonicPlaylist(p, "", songs)
	s.sendResponse(c, func(r *Response) { r.Playlist = &out })
}

func (s *Server) scrobble(c *gin.Context) {
	tid, err := id.Decode(id.NamespaceTrack, c.Query("id"))
	if err != nil {
		s.sendError(c, 10, "invalid id")
		return
	}
	if _, err := s.engine.Scrobble.Create(userID(c), tid, time.Now(), 0, sql.NullString{}); err != nil {
		s.sendError(c, 0, "failed to scrobble")
		return
	}
	s.sendResponse(c, nil)
}

func (s *Server) star(c *gin.Context) {
	s.toggleFavorite(c, true)
}

func (s *Server) unstar(c *gin.Context) {
	s.toggleFavorite(c, false)
}

func (s *Server) toggleFavorite(c *gin.Context, add bool) {
	uid := userID(c)
	for _, itemID := range favoritableQueryIDs(c) {
		var err error
		if add {
			err = s.engine.Social.FavoriteAdd(uid, itemID)
		} else {
			err = s.engine.Social.FavoriteRemove(uid, itemID)
		}
		if err != nil {
			s.sendError(c, 0, "failed to update favorite")
			return
		}
	}
	s.sendResponse(c, nil)
}

// favoritableQueryIDs collects every id/albumId/artistId query parameter
// OpenSubsonic's star/unstar endpoints allow repeating.
func favoritableQueryIDs(c *gin.Context) []string {
	var out []string
	out = append(out, c.QueryArray("id")...)
	out = append(out, c.QueryArray("albumId")...)
	out = append(out, c.QueryArray("artistId")...)
	return out
}

func (s *Server) getStarred2(c *gin.Context) {
	uid := userID(c)
	var result Starred2
	if favs, err := s.engine.Social.FavoritesList(uid, id.NamespaceArtist, catalog.Page{Offset: 0, Count: 500}); err == nil {
		for _, f := range favs {
			if a, err := s.engine.Catalog.GetArtist(f.Identifier); err == nil {
				result.Artist = append(result.Artist, toSubsonicArtist(a, nil))
			}
		}
	}
	if favs, err := s.engine.Social.FavoritesList(uid, id.NamespaceAlbum, catalog.Page{Offset: 0, Count: 500}); err == nil {
		for _, f := range favs {
			if al, err := s.engine.Catalog.GetAlbum(f.Identifier); err == nil {
				result.Album = append(result.Album, toSubsonicAlbum(al, nil, ""))
			}
		}
	}
	if favs, err := s.engine.Social.FavoritesList(uid, id.NamespaceTrack, catalog.Page{Offset: 0, Count: 500}); err == nil {
		for _, f := range favs {
			if t, err := s.engine.Catalog.GetTrack(f.Identifier); err == nil {
				result.Song = append(result.Song, toSubsonicSong(t, "", ""))
			}
		}
	}
	s.sendResponse(c, func(r *Response) { r.Starred2 = &result })
}
