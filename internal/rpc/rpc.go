// Package rpc is Sonar's native wire surface: each engine operation is
// exposed as a JSON-over-HTTP endpoint under /v1, following the
// teacher's gin-based routing style but replacing Subsonic's query-param
// request shape with JSON bodies/responses and a typed error mapper.
package rpc

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sonar/internal/engine"
	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

type Server struct {
	engine *engine.Engine
	router *gin.Engine
}

func New(e *engine.Engine) *Server {
	router := gin.Default()
	s := &Server{engine: e, router: router}
	s.routes()
	return s
}

func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) routes() {
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "sonar"})
	})

	v1 := s.router.Group("/v1")

	v1.POST("/users", s.userCreateBootstrap)
	v1.POST("/login", s.login)

	authed := v1.Group("")
	authed.Use(s.requireAuth())
	{
		authed.POST("/logout", s.logout)

		authed.GET("/artists", s.listArtists)
		authed.GET("/artists/:id", s.getArtist)
		authed.GET("/albums/:id", s.getAlbum)
		authed.GET("/albums/:id/tracks", s.listAlbumTracks)
		authed.GET("/tracks/:id", s.getTrack)
		authed.GET("/tracks/:id/lyrics", s.getLyrics)
		authed.PUT("/tracks/:id/lyrics", s.putLyrics)

		authed.POST("/tracks/:id/audio", s.attachAudio)
		authed.POST("/tracks/:id/audio/:audioId/preferred", s.setPreferredAudio)
		authed.GET("/tracks/:id/stream", s.stream)

		authed.POST("/images", s.createImage)
		authed.GET("/images/:id", s.downloadImage)

		authed.POST("/import", s.importStream)

		authed.POST("/playlists", s.createPlaylist)
		authed.GET("/playlists/:id", s.getPlaylist)
		authed.GET("/playlists", s.listPlaylists)
		authed.PUT("/playlists/:id", s.updatePlaylist)
		authed.DELETE("/playlists/:id", s.deletePlaylist)
		authed.POST("/playlists/:id/duplicate", s.duplicatePlaylist)
		authed.GET("/playlists/:id/tracks", s.listPlaylistTracks)
		authed.POST("/playlists/:id/tracks", s.insertPlaylistTracks)
		authed.DELETE("/playlists/:id/tracks", s.removePlaylistTracks)
		authed.DELETE("/playlists/:id/tracks/all", s.clearPlaylistTracks)

		authed.POST("/favorites", s.favoriteAdd)
		authed.DELETE("/favorites", s.favoriteRemove)
		authed.GET("/favorites", s.listFavorites)
		authed.POST("/pins", s.pinSet)
		authed.DELETE("/pins", s.pinUnset)
		authed.GET("/pins", s.listPins)

		authed.POST("/scrobbles", s.createScrobble)
		authed.DELETE("/scrobbles/:id", s.deleteScrobble)
		authed.GET("/scrobbles", s.listScrobbles)

		authed.POST("/subscriptions", s.createSubscription)
		authed.GET("/subscriptions/:id", s.getSubscription)
		authed.GET("/subscriptions", s.listSubscriptions)
		authed.DELETE("/subscriptions/:id", s.deleteSubscription)

		authed.POST("/metadata/fetch", s.metadataFetch)
		authed.GET("/albums/:id/metadata", s.metadataAlbumTracks)

		authed.GET("/search", s.search)

		admin := authed.Group("")
		admin.Use(s.requireAdmin())
		{
			admin.DELETE("/users/:id", s.userDelete)
		}
	}
}

// writeError maps a sonarerr.Error to an HTTP status and a small JSON
// body; unrecognized errors fall back to 500 without leaking detail.
func writeError(c *gin.Context, err error) {
	var se *sonarerr.Error
	if e, ok := err.(*sonarerr.Error); ok {
		se = e
	}
	if se == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case sonarerr.KindNotFound:
		status = http.StatusNotFound
	case sonarerr.KindInvalidArgument, sonarerr.KindInvalidID, sonarerr.KindUnsupportedMime:
		status = http.StatusBadRequest
	case sonarerr.KindConflict:
		status = http.StatusConflict
	case sonarerr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case sonarerr.KindPermissionDenied:
		status = http.StatusForbidden
	case sonarerr.KindHashMismatch, sonarerr.KindIoError, sonarerr.KindProviderError, sonarerr.KindInternal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": se.Error(), "kind": string(se.Kind)})
}

// pathID decodes an opaque external id from a path parameter, rejecting
// any id that doesn't belong to ns — spec §4.3's typed-namespace check.
func pathID(c *gin.Context, name string, ns id.Namespace) (int64, bool) {
	key, err := id.Decode(ns, c.Param(name))
	if err != nil {
		writeError(c, err)
		return 0, false
	}
	return key, true
}

func queryPage(c *gin.Context) (offset, count *int) {
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = &n
		}
	}
	if v := c.Query("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			count = &n
		}
	}
	return offset, count
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}
