package web

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sonar/internal/catalog"
	"sonar/internal/id"
	"sonar/internal/sonarerr"
)

func userDTO(u *catalog.User) gin.H {
	return gin.H{
		"id":         id.Encode(id.NamespaceUser, u.ID),
		"username":   u.Username,
		"is_admin":   u.IsAdmin,
		"created_at": u.CreatedAt,
	}
}

// stats reports the dashboard counters the teacher's DashboardData
// carried, minus the music-path/recent-users fields that depended on
// its now-absent filesystem scanner.
func (s *Server) stats(c *gin.Context) {
	st, err := s.engine.Catalog.Stats()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"total_users":   st.TotalUsers,
		"total_artists": st.TotalArtists,
		"total_albums":  st.TotalAlbums,
		"total_tracks":  st.TotalTracks,
	})
}

func (s *Server) listUsers(c *gin.Context) {
	offset, count := queryPage(c)
	users, err := s.engine.Catalog.ListUsers(catalog.NewPage(offset, count))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, len(users))
	for i, u := range users {
		out[i] = userDTO(u)
	}
	c.JSON(200, gin.H{"users": out})
}

func (s *Server) createUser(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" || body.Password == "" {
		writeError(c, sonarerr.InvalidArgument("username/password", "required"))
		return
	}
	u, err := s.engine.Auth.Register(body.Username, body.Password, body.IsAdmin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(201, userDTO(u))
}

func (s *Server) deleteUser(c *gin.Context) {
	uid, ok := pathID(c, "id", id.NamespaceUser)
	if !ok {
		return
	}
	if err := s.engine.Catalog.DeleteUser(uid); err != nil {
		writeError(c, err)
		return
	}
	c.Status(204)
}

// gc removes blob store files no longer referenced by any image or audio
// row, the same operation sonarctl gc performs out-of-process.
func (s *Server) gc(c *gin.Context) {
	referenced, err := s.engine.Catalog.ReferencedBlobKeys()
	if err != nil {
		writeError(c, err)
		return
	}
	removed, err := s.engine.Blobs.GC(referenced)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"removed": len(removed)})
}

func (s *Server) reconcile(c *gin.Context) {
	if err := s.engine.Catalog.ReconcileListenCounts(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(204)
}

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
