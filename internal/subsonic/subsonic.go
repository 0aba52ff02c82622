// Package subsonic is Sonar's OpenSubsonic-compatible adapter: it maps the
// library engine's operations onto the subset of the OpenSubsonic REST API
// that third-party clients rely on for browsing and playback (spec §
// "OpenSubsonic adapter"). It mirrors the teacher's dual XML/JSON response
// envelope, but every handler reads and writes through engine.Engine instead
// of touching *sql.DB directly.
package subsonic

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sonar/internal/engine"
)

const apiVersion = "1.16.1"

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
	rest := s.router.Group("/rest")
	rest.Use(s.authenticate())
	{
		rest.GET("/ping", s.ping)
		rest.GET("/ping.view", s.ping)
		rest.GET("/getLicense", s.getLicense)
		rest.GET("/getLicense.view", s.getLicense)

		rest.GET("/getArtists", s.getArtists)
		rest.GET("/getArtists.view", s.getArtists)
		rest.GET("/getArtist", s.getArtist)
		rest.GET("/getArtist.view", s.getArtist)
		rest.GET("/getAlbum", s.getAlbum)
		rest.GET("/getAlbum.view", s.getAlbum)
		rest.GET("/getSong", s.getSong)
		rest.GET("/getSong.view", s.getSong)

		rest.GET("/stream", s.stream)
		rest.GET("/stream.view", s.stream)
		rest.GET("/getCoverArt", s.getCoverArt)
		rest.GET("/getCoverArt.view", s.getCoverArt)

		rest.GET("/search3", s.search3)
		rest.GET("/search3.view", s.search3)

		rest.GET("/getPlaylists", s.getPlaylists)
		rest.GET("/getPlaylists.view", s.getPlaylists)
		rest.GET("/getPlaylist", s.getPlaylist)
		rest.GET("/getPlaylist.view", s.getPlaylist)

		rest.GET("/scrobble", s.scrobble)
		rest.GET("/scrobble.view", s.scrobble)
		rest.GET("/star", s.star)
		rest.GET("/star.view", s.star)
		rest.GET("/unstar", s.unstar)
		rest.GET("/unstar.view", s.unstar)
		rest.GET("/getStarred2", s.getStarred2)
		rest.GET("/getStarred2.view", s.getStarred2)
	}
}

// --- envelope ----------------------------------------------------------

// Response is OpenSubsonic's single polymorphic envelope: exactly one of
// the named fields is populated per call, matching the teacher's
// SubsonicResponse shape.
type Response struct {
	XMLName    xml.Name    `xml:"subsonic-response" json:"-"`
	Status     string      `xml:"status,attr" json:"status"`
	Version    string      `xml:"version,attr" json:"version"`
	Error      *Error      `xml:"error,omitempty" json:"error,omitempty"`
	License    *License    `xml:"license,omitempty" json:"license,omitempty"`
	Artists    *Artists    `xml:"artists,omitempty" json:"artists,omitempty"`
	Artist     *Artist     `xml:"artist,omitempty" json:"artist,omitempty"`
	Album      *Album      `xml:"album,omitempty" json:"album,omitempty"`
	Song       *Song       `xml:"song,omitempty" json:"song,omitempty"`
	SearchResult3 *SearchResult3 `xml:"searchResult3,omitempty" json:"searchResult3,omitempty"`
	Playlists  *Playlists  `xml:"playlists,omitempty" json:"playlists,omitempty"`
	Playlist   *Playlist   `xml:"playlist,omitempty" json:"playlist,omitempty"`
	Starred2   *Starred2   `xml:"starred2,omitempty" json:"starred2,omitempty"`
}

type Error struct {
	Code    int    `xml:"code,attr" json:"code"`
	Message string `xml:"message,attr" json:"message"`
}

type License struct {
	Valid bool `xml:"valid,attr" json:"valid"`
}

type Artists struct {
	Index []Index `xml:"index" json:"index"`
}

type Index struct {
	Name   string   `xml:"name,attr" json:"name"`
	Artist []Artist `xml:"artist" json:"artist"`
}

type Artist struct {
	ID         string  `xml:"id,attr" json:"id"`
	Name       string  `xml:"name,attr" json:"name"`
	CoverArt   string  `xml:"coverArt,attr,omitempty" json:"coverArt,omitempty"`
	AlbumCount int     `xml:"albumCount,attr" json:"albumCount"`
	Album      []Album `xml:"album,omitempty" json:"album,omitempty"`
}

type Album struct {
	ID        string `xml:"id,attr" json:"id"`
	Name      string `xml:"name,attr" json:"name"`
	Artist    string `xml:"artist,attr" json:"artist"`
	ArtistID  string `xml:"artistId,attr" json:"artistId"`
	CoverArt  string `xml:"coverArt,attr,omitempty" json:"coverArt,omitempty"`
	SongCount int    `xml:"songCount,attr" json:"songCount"`
	Duration  int    `xml:"duration,attr" json:"duration"`
	Song      []Song `xml:"song,omitempty" json:"song,omitempty"`
}

type Song struct {
	ID          string `xml:"id,attr" json:"id"`
	Parent      string `xml:"parent,attr,omitempty" json:"parent,omitempty"`
	Title       string `xml:"title,attr" json:"title"`
	Album       string `xml:"album,attr,omitempty" json:"album,omitempty"`
	AlbumID     string `xml:"albumId,attr,omitempty" json:"albumId,omitempty"`
	Artist      string `xml:"artist,attr,omitempty" json:"artist,omitempty"`
	IsDir       bool   `xml:"isDir,attr" json:"isDir"`
	CoverArt    string `xml:"coverArt,attr,omitempty" json:"coverArt,omitempty"`
	Duration    int    `xml:"duration,attr" json:"duration"`
	BitRate     int    `xml:"bitRate,attr" json:"bitRate"`
	ContentType string `xml:"contentType,attr,omitempty" json:"contentType,omitempty"`
	Suffix      string `xml:"suffix,attr,omitempty" json:"suffix,omitempty"`
	Starred     string `xml:"starred,attr,omitempty" json:"starred,omitempty"`
}

type SearchResult3 struct {
	Artist []Artist `xml:"artist" json:"artist"`
	Album  []Album  `xml:"album" json:"album"`
	Song   []Song   `xml:"song" json:"song"`
}

type Playlists struct {
	Playlist []Playlist `xml:"playlist" json:"playlist"`
}

type Playlist struct {
	ID        string `xml:"id,attr" json:"id"`
	Name      string `xml:"name,attr" json:"name"`
	Owner     string `xml:"owner,attr" json:"owner"`
	SongCount int    `xml:"songCount,attr" json:"songCount"`
	Duration  int    `xml:"duration,attr" json:"duration"`
	Entry     []Song `xml:"entry,omitempty" json:"entry,omitempty"`
}

type Starred2 struct {
	Artist []Artist `xml:"artist" json:"artist"`
	Album  []Album  `xml:"album" json:"album"`
	Song   []Song   `xml:"song" json:"song"`
}

func (s *Server) sendResponse(c *gin.Context, set func(*Response)) {
	resp := &Response{Status: "ok", Version: apiVersion}
	if set != nil {
		set(resp)
	}
	s.write(c, resp)
}

func (s *Server) sendError(c *gin.Context, code int, message string) {
	resp := &Response{Status: "failed", Version: apiVersion, Error: &Error{Code: code, Message: message}}
	s.write(c, resp)
	c.Abort()
}

func (s *Server) write(c *gin.Context, resp *Response) {
	if c.DefaultQuery("f", "xml") == "json" {
		c.JSON(http.StatusOK, gin.H{"subsonic-response": resp})
		return
	}
	c.Header("Content-Type", "text/xml")
	c.XML(http.StatusOK, resp)
}

func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
