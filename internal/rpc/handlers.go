package rpc

import (
	"database/sql"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sonar/internal/auth"
	"sonar/internal/catalog"
	"sonar/internal/id"
	"sonar/internal/importpipeline"
	"sonar/internal/metadata"
	"sonar/internal/search"
	"sonar/internal/sonarerr"
)

// --- auth middleware -------------------------------------------------

const claimsKey = "claims"

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			writeError(c, sonarerr.Unauthenticated())
			c.Abort()
			return
		}
		claims, err := s.engine.Auth.Authorize(token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := mustClaims(c)
		if claims == nil {
			writeError(c, sonarerr.Unauthenticated())
			c.Abort()
			return
		}
		if err := auth.RequireAdmin(claims); err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func mustClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// --- users / sessions --------------------------------------------------

// userCreateBootstrap registers a new user. Admin-only in practice once a
// first user exists; spec §6 leaves the very first registration open so a
// fresh deployment can bootstrap itself before any admin session exists.
func (s *Server) userCreateBootstrap(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}
	existing, err := s.engine.Catalog.ListUsers(catalog.Page{Count: 1})
	if err != nil {
		writeError(c, err)
		return
	}
	if len(existing) > 0 {
		claims, err := s.engine.Auth.Authorize(bearerToken(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if err := auth.RequireAdmin(claims); err != nil {
			writeError(c, err)
			return
		}
	}
	u, err := s.engine.Auth.Register(req.Username, req.Password, req.IsAdmin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userDTO(u))
}

func (s *Server) userDelete(c *gin.Context) {
	uid, ok := pathID(c, "id", id.NamespaceUser)
	if !ok {
		return
	}
	if err := s.engine.Catalog.DeleteUser(uid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}
	token, u, err := s.engine.Auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userDTO(u)})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.engine.Auth.Logout(bearerToken(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- artists / albums / tracks ------------------------------------------

func (s *Server) listArtists(c *gin.Context) {
	offset, count := queryPage(c)
	artists, err := s.engine.Catalog.ListArtists(catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(artists))
	for i, a := range artists {
		out[i] = artistDTO(a)
	}
	c.JSON(http.StatusOK, gin.H{"artists": out})
}

func (s *Server) getArtist(c *gin.Context) {
	aid, ok := pathID(c, "id", id.NamespaceArtist)
	if !ok {
		return
	}
	a, err := s.engine.Catalog.GetArtist(aid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, artistDTO(a))
}

func (s *Server) getAlbum(c *gin.Context) {
	alid, ok := pathID(c, "id", id.NamespaceAlbum)
	if !ok {
		return
	}
	al, err := s.engine.Catalog.GetAlbum(alid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, albumDTO(al))
}

func (s *Server) listAlbumTracks(c *gin.Context) {
	alid, ok := pathID(c, "id", id.NamespaceAlbum)
	if !ok {
		return
	}
	offset, count := queryPage(c)
	tracks, err := s.engine.Catalog.ListTracksByAlbum(alid, catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(tracks))
	for i, t := range tracks {
		out[i] = trackDTO(t)
	}
	c.JSON(http.StatusOK, gin.H{"tracks": out})
}

func (s *Server) getTrack(c *gin.Context) {
	tid, ok := pathID(c, "id", id.NamespaceTrack)
	if !ok {
		return
	}
	t, err := s.engine.Catalog.GetTrack(tid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trackDTO(t))
}

// --- lyrics --------------------------------------------------------------

func (s *Server) getLyrics(c *gin.Context) {
	tid, ok := pathID(c, "id", id.NamespaceTrack)
	if !ok {
		return
	}
	lines, err := s.engine.Lyrics.List(tid)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(lines))
	for i, l := range lines {
		out[i] = lyricsLineDTO(l)
	}
	c.JSON(http.StatusOK, gin.H{"lines": out})
}

func (s *Server) putLyrics(c *gin.Context) {
	tid, ok := pathID(c, "id", id.NamespaceTrack)
	if !ok {
		return
	}
	var req struct {
		Synced bool `json:"synced"`
		Lines  []struct {
			OffsetMs   int    `json:"offset_ms"`
			DurationMs int    `json:"duration_ms"`
			Text       string `json:"text"`
		} `json:"lines"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}
	lines := make([]catalog.LyricsLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = catalog.LyricsLine{TrackID: tid, OffsetMs: l.OffsetMs, DurationMs: l.DurationMs, Text: l.Text}
	}
	if err := s.engine.Lyrics.Replace(tid, req.Synced, lines); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- audio attach / stream -------------------------------------------------

func (s *Server) attachAudio(c *gin.Context) {
	tid, ok := pathID(c, "id", id.NamespaceTrack)
	if !ok {
		return
	}
	mime := c.ContentType()
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, sonarerr.IoError(err))
		return
	}
	a, err := s.engine.Audio.Attach(tid, mime, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, audioDTO(a))
}

func (s *Server) setPreferredAudio(c *gin.Context) {
	tid, ok := pathID(c, "id", id.NamespaceTrack)
	if !ok {
		return
	}
	audioID, ok := pathID(c, "audioId", id.NamespaceAudio)
	if !ok {
		return
	}
	if err := s.engine.Audio.SetPreferred(tid, audioID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// stream serves a track's preferred audio, honoring an HTTP Range
// header (single range only, as the spec's streaming endpoint requires).
func (s *Server) stream(c *gin.Context) {
	tid, ok := pathID(c, "id", id.NamespaceTrack)
	if !ok {
		return
	}

	var offset, length int64
	status := http.StatusOK
	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		var end int64
		var parsedEnd bool
		offset, end, parsedEnd = parseRange(rangeHeader)
		if parsedEnd {
			length = end - offset + 1
		}
		status = http.StatusPartialContent
	}

	audioRow, rc, err := s.engine.Audio.Stream(tid, offset, length)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Type", audioRow.Mime)
	if status == http.StatusPartialContent {
		end := offset + length - 1
		if length == 0 {
			c.Header("Content-Range", "bytes "+strconv.FormatInt(offset, 10)+"-/*")
		} else {
			c.Header("Content-Range", "bytes "+strconv.FormatInt(offset, 10)+"-"+strconv.FormatInt(end, 10)+"/*")
		}
	}
	c.Status(status)
	io.Copy(c.Writer, rc)
}

// parseRange parses a "bytes=start-end" header, returning start, end, and
// whether an explicit end was present ("bytes=500-" has none).
func parseRange(header string) (start, end int64, hasEnd bool) {
	spec := strings.TrimPrefix(header, "bytes=")
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	if parts[0] != "" {
		start, _ = strconv.ParseInt(parts[0], 10, 64)
	}
	if parts[1] != "" {
		if e, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			end = e
			hasEnd = true
		}
	}
	return start, end, hasEnd
}

// --- images ----------------------------------------------------------------

func (s *Server) createImage(c *gin.Context) {
	img, err := s.engine.Image.Create(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, imageDTO(img))
}

func (s *Server) downloadImage(c *gin.Context) {
	imgID, ok := pathID(c, "id", id.NamespaceImage)
	if !ok {
		return
	}
	img, rc, err := s.engine.Image.Get(imgID)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Type", img.Mime)
	io.Copy(c.Writer, rc)
}

// --- import ------------------------------------------------------------

func (s *Server) importStream(c *gin.Context) {
	mime := c.ContentType()
	if mime == "" {
		mime = "application/octet-stream"
	}

	hints := importpipeline.Hints{Filepath: c.Query("filepath")}
	if v := c.Query("artist_id"); v != "" {
		aid, err := id.Decode(id.NamespaceArtist, v)
		if err != nil {
			writeError(c, err)
			return
		}
		hints.ArtistID = sql.NullInt64{Int64: aid, Valid: true}
	}
	if v := c.Query("album_id"); v != "" {
		alid, err := id.Decode(id.NamespaceAlbum, v)
		if err != nil {
			writeError(c, err)
			return
		}
		hints.AlbumID = sql.NullInt64{Int64: alid, Valid: true}
	}

	result, err := s.engine.Import.Import(c.Request.Body, mime, hints)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"artist": artistDTO(result.Artist),
		"album":  albumDTO(result.Album),
		"track":  trackDTO(result.Track),
		"audio":  audioDTO(result.Audio),
	})
}

// --- playlists ---------------------------------------------------------

func (s *Server) createPlaylist(c *gin.Context) {
	claims := mustClaims(c)
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}
	p, err := s.engine.Playlist.Create(claims.UserID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, playlistDTO(p))
}

func (s *Server) getPlaylist(c *gin.Context) {
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	p, err := s.engine.Playlist.Get(pid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlistDTO(p))
}

func (s *Server) listPlaylists(c *gin.Context) {
	claims := mustClaims(c)
	offset, count := queryPage(c)
	lists, err := s.engine.Playlist.ListByOwner(claims.UserID, catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(lists))
	for i, p := range lists {
		out[i] = playlistDTO(p)
	}
	c.JSON(http.StatusOK, gin.H{"playlists": out})
}

func (s *Server) updatePlaylist(c *gin.Context) {
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	var req struct {
		Name    *string `json:"name"`
		CoverID *string `json:"cover_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}
	patch := catalog.UpdatePlaylistPatch{}
	if req.Name != nil {
		patch.Name = catalog.Some(*req.Name)
	}
	if req.CoverID != nil {
		nullable, err := parseNullableImageID(*req.CoverID)
		if err != nil {
			writeError(c, err)
			return
		}
		patch.CoverImageID = catalog.Some(nullable)
	}
	p, err := s.engine.Playlist.Update(pid, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlistDTO(p))
}

func (s *Server) deletePlaylist(c *gin.Context) {
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	if err := s.engine.Playlist.Delete(pid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) duplicatePlaylist(c *gin.Context) {
	claims := mustClaims(c)
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}
	p, err := s.engine.Playlist.Duplicate(claims.UserID, pid, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, playlistDTO(p))
}

func (s *Server) listPlaylistTracks(c *gin.Context) {
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	tracks, err := s.engine.Playlist.TrackList(pid)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(tracks))
	for i, t := range tracks {
		out[i] = playlistTrackDTO(t)
	}
	c.JSON(http.StatusOK, gin.H{"tracks": out})
}

func (s *Server) insertPlaylistTracks(c *gin.Context) {
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	trackIDs, ok := s.bindTrackIDs(c)
	if !ok {
		return
	}
	tracks, err := s.engine.Playlist.TrackInsert(pid, trackIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(tracks))
	for i, t := range tracks {
		out[i] = playlistTrackDTO(t)
	}
	c.JSON(http.StatusOK, gin.H{"tracks": out})
}

func (s *Server) removePlaylistTracks(c *gin.Context) {
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	trackIDs, ok := s.bindTrackIDs(c)
	if !ok {
		return
	}
	if err := s.engine.Playlist.TrackRemove(pid, trackIDs); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) clearPlaylistTracks(c *gin.Context) {
	pid, ok := pathID(c, "id", id.NamespacePlaylist)
	if !ok {
		return
	}
	if err := s.engine.Playlist.TrackClear(pid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) bindTrackIDs(c *gin.Context) ([]int64, bool) {
	var req struct {
		TrackIDs []string `json:"track_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return nil, false
	}
	out := make([]int64, len(req.TrackIDs))
	for i, opaque := range req.TrackIDs {
		tid, err := id.Decode(id.NamespaceTrack, opaque)
		if err != nil {
			writeError(c, err)
			return nil, false
		}
		out[i] = tid
	}
	return out, true
}

// --- favorites / pins ----------------------------------------------------

func (s *Server) favoriteAdd(c *gin.Context) {
	claims := mustClaims(c)
	itemID, ok := s.bindItemID(c)
	if !ok {
		return
	}
	if err := s.engine.Social.FavoriteAdd(claims.UserID, itemID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) favoriteRemove(c *gin.Context) {
	claims := mustClaims(c)
	itemID := c.Query("item_id")
	if itemID == "" {
		writeError(c, sonarerr.InvalidArgument("item_id", "required"))
		return
	}
	if err := s.engine.Social.FavoriteRemove(claims.UserID, itemID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listFavorites(c *gin.Context) {
	claims := mustClaims(c)
	ns := id.Namespace(c.Query("namespace"))
	offset, count := queryPage(c)
	favorites, err := s.engine.Social.FavoritesList(claims.UserID, ns, catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(favorites))
	for i, f := range favorites {
		out[i] = favoriteDTO(f)
	}
	c.JSON(http.StatusOK, gin.H{"favorites": out})
}

func (s *Server) pinSet(c *gin.Context) {
	claims := mustClaims(c)
	itemIDs, ok := s.bindItemIDs(c)
	if !ok {
		return
	}
	if err := s.engine.Social.PinSet(claims.UserID, itemIDs); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) pinUnset(c *gin.Context) {
	claims := mustClaims(c)
	itemIDs, ok := s.bindItemIDs(c)
	if !ok {
		return
	}
	if err := s.engine.Social.PinUnset(claims.UserID, itemIDs); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listPins(c *gin.Context) {
	claims := mustClaims(c)
	ns := id.Namespace(c.Query("namespace"))
	offset, count := queryPage(c)
	pins, err := s.engine.Social.PinsList(claims.UserID, ns, catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(pins))
	for i, p := range pins {
		out[i] = pinDTO(p)
	}
	c.JSON(http.StatusOK, gin.H{"pins": out})
}

func (s *Server) bindItemID(c *gin.Context) (string, bool) {
	var req struct {
		ItemID string `json:"item_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return "", false
	}
	return req.ItemID, true
}

func (s *Server) bindItemIDs(c *gin.Context) ([]string, bool) {
	var req struct {
		ItemIDs []string `json:"item_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return nil, false
	}
	return req.ItemIDs, true
}

// --- scrobbles -----------------------------------------------------------

func (s *Server) createScrobble(c *gin.Context) {
	claims := mustClaims(c)
	var req struct {
		TrackID          string     `json:"track_id" binding:"required"`
		ListenAt         *time.Time `json:"listen_at"`
		ListenDurationMs int64      `json:"listen_duration_ms"`
		Device           string     `json:"device"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}
	tid, err := id.Decode(id.NamespaceTrack, req.TrackID)
	if err != nil {
		writeError(c, err)
		return
	}
	at := time.Now()
	if req.ListenAt != nil {
		at = *req.ListenAt
	}
	device := sql.NullString{String: req.Device, Valid: req.Device != ""}
	sc, err := s.engine.Scrobble.Create(claims.UserID, tid, at, req.ListenDurationMs, device)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, scrobbleDTO(sc))
}

func (s *Server) deleteScrobble(c *gin.Context) {
	sid, ok := pathID(c, "id", id.NamespaceScrobble)
	if !ok {
		return
	}
	if err := s.engine.Scrobble.Delete(sid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listScrobbles(c *gin.Context) {
	claims := mustClaims(c)
	offset, count := queryPage(c)
	scrobbles, err := s.engine.Scrobble.ListByUser(claims.UserID, catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(scrobbles))
	for i, sc := range scrobbles {
		out[i] = scrobbleDTO(sc)
	}
	c.JSON(http.StatusOK, gin.H{"scrobbles": out})
}

// --- subscriptions ---------------------------------------------------------

func (s *Server) createSubscription(c *gin.Context) {
	claims := mustClaims(c)
	var req struct {
		ArtistID        *string `json:"artist_id"`
		AlbumID         *string `json:"album_id"`
		TrackID         *string `json:"track_id"`
		PlaylistID      *string `json:"playlist_id"`
		ExternalID      *string `json:"external_id"`
		MediaType       string  `json:"media_type" binding:"required"`
		IntervalSeconds int     `json:"interval_seconds" binding:"required"`
		Description     *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}

	sub := catalog.NewSubscription{
		UserID:          claims.UserID,
		MediaType:       catalog.MediaType(req.MediaType),
		IntervalSeconds: req.IntervalSeconds,
	}
	var err error
	if sub.ArtistID, err = optionalID(req.ArtistID, id.NamespaceArtist); err != nil {
		writeError(c, err)
		return
	}
	if sub.AlbumID, err = optionalID(req.AlbumID, id.NamespaceAlbum); err != nil {
		writeError(c, err)
		return
	}
	if sub.TrackID, err = optionalID(req.TrackID, id.NamespaceTrack); err != nil {
		writeError(c, err)
		return
	}
	if sub.PlaylistID, err = optionalID(req.PlaylistID, id.NamespacePlaylist); err != nil {
		writeError(c, err)
		return
	}
	if req.ExternalID != nil {
		sub.ExternalID = sql.NullString{String: *req.ExternalID, Valid: true}
	}
	if req.Description != nil {
		sub.Description = sql.NullString{String: *req.Description, Valid: true}
	}

	created, err := s.engine.Sub.Create(sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subscriptionDTO(created))
}

func (s *Server) getSubscription(c *gin.Context) {
	sid, ok := pathID(c, "id", id.NamespaceSubscription)
	if !ok {
		return
	}
	sub, err := s.engine.Sub.Get(sid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscriptionDTO(sub))
}

func (s *Server) listSubscriptions(c *gin.Context) {
	claims := mustClaims(c)
	offset, count := queryPage(c)
	subs, err := s.engine.Sub.ListByUser(claims.UserID, catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(subs))
	for i, sub := range subs {
		out[i] = subscriptionDTO(sub)
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

func (s *Server) deleteSubscription(c *gin.Context) {
	sid, ok := pathID(c, "id", id.NamespaceSubscription)
	if !ok {
		return
	}
	if err := s.engine.Sub.Delete(sid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func optionalID(opaque *string, ns id.Namespace) (sql.NullInt64, error) {
	if opaque == nil || *opaque == "" {
		return sql.NullInt64{}, nil
	}
	key, err := id.Decode(ns, *opaque)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: key, Valid: true}, nil
}

func parseNullableImageID(opaque string) (sql.NullInt64, error) {
	if opaque == "" {
		return sql.NullInt64{}, nil
	}
	key, err := id.Decode(id.NamespaceImage, opaque)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: key, Valid: true}, nil
}

// --- metadata enrichment ---------------------------------------------------

func (s *Server) metadataFetch(c *gin.Context) {
	var req struct {
		Kind       string   `json:"kind" binding:"required"`
		Identifier string   `json:"identifier" binding:"required"`
		Providers  []string `json:"providers"`
		Fields     []string `json:"fields"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, sonarerr.InvalidArgument("body", err.Error()))
		return
	}

	kind := metadata.Kind(req.Kind)
	var ns id.Namespace
	switch kind {
	case metadata.KindArtist:
		ns = id.NamespaceArtist
	case metadata.KindAlbum:
		ns = id.NamespaceAlbum
	case metadata.KindTrack:
		ns = id.NamespaceTrack
	default:
		writeError(c, sonarerr.InvalidArgument("kind", "must be artist, album, or track"))
		return
	}
	identifier, err := id.Decode(ns, req.Identifier)
	if err != nil {
		writeError(c, err)
		return
	}

	patch, err := s.engine.Metadata.Fetch(c.Request.Context(), kind, identifier, req.Providers, req.Fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, metadataPatchDTO(patch))
}

func (s *Server) metadataAlbumTracks(c *gin.Context) {
	alid, ok := pathID(c, "id", id.NamespaceAlbum)
	if !ok {
		return
	}
	providers := c.QueryArray("providers")
	fields := c.QueryArray("fields")

	patches, err := s.engine.Metadata.AlbumTracks(c.Request.Context(), alid, providers, fields)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make(map[string]gin.H, len(patches))
	for trackID, patch := range patches {
		out[id.Encode(id.NamespaceTrack, trackID)] = metadataPatchDTO(patch)
	}
	c.JSON(http.StatusOK, gin.H{"tracks": out})
}

// --- search ----------------------------------------------------------------

func (s *Server) search(c *gin.Context) {
	claims := mustClaims(c)
	query := c.Query("q")
	if query == "" {
		writeError(c, sonarerr.InvalidArgument("q", "required"))
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	flags := search.Flags{
		Artist:   c.Query("artist") != "false",
		Album:    c.Query("album") != "false",
		Track:    c.Query("track") != "false",
		Playlist: c.Query("playlist") != "false",
	}

	hits, err := s.engine.Search.Search(claims.UserID, query, flags, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(hits))
	for i, h := range hits {
		out[i] = hitDTO(h)
	}
	c.JSON(http.StatusOK, gin.H{"hits": out})
}

func hitDTO(h search.Hit) gin.H {
	var entity gin.H
	switch v := h.Entity.(type) {
	case *catalog.Artist:
		entity = artistDTO(v)
	case *catalog.Album:
		entity = albumDTO(v)
	case *catalog.Track:
		entity = trackDTO(v)
	case *catalog.Playlist:
		entity = playlistDTO(v)
	}
	return gin.H{"kind": h.Kind, "entity": entity}
}
