// Package web is Sonar's admin surface: a small JSON API for the handful
// of operator tasks the native RPC surface deliberately keeps out of
// reach of ordinary users — dashboard counts, user management, blob
// garbage collection, and listen-count reconciliation. It follows the same gin-router and
// bearer-auth shape as package rpc rather than the teacher's
// html/template login+dashboard pages, since those pages aren't owned
// by this surface's admins-only concern: an admin consuming this API is
// assumed to be a dashboard frontend or curl, not a browser session.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sonar/internal/auth"
	"sonar/internal/engine"
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

const claimsKey = "webClaims"

func (s *Server) routes() {
	admin := s.router.Group("/admin")
	admin.Use(s.requireAdmin())
	{
		admin.GET("/stats", s.stats)
		admin.GET("/users", s.listUsers)
		admin.POST("/users", s.createUser)
		admin.DELETE("/users/:id", s.deleteUser)
		admin.POST("/gc", s.gc)
		admin.POST("/reconcile", s.reconcile)
	}
}

// requireAdmin authenticates via the same bearer token the native RPC
// surface issues and additionally requires the admin flag, so an admin
// dashboard can share login flow with the rest of the app instead of
// maintaining its own session cookie and login template.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		claims, err := s.engine.Auth.Authorize(token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		if err := auth.RequireAdmin(claims); err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	return c.Query("token")
}

func writeError(c *gin.Context, err error) {
	se, ok := err.(*sonarerr.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	status := http.StatusInternalServerError
	switch se.Kind {
	case sonarerr.KindNotFound:
		status = http.StatusNotFound
	case sonarerr.KindInvalidArgument, sonarerr.KindInvalidID:
		status = http.StatusBadRequest
	case sonarerr.KindConflict:
		status = http.StatusConflict
	case sonarerr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case sonarerr.KindPermissionDenied:
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": se.Error(), "kind": string(se.Kind)})
}
