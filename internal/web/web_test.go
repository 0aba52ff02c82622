package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBearerTokenFromHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	c.Request.Header.Set("Authorization", "Bearer abc123")

	if got := bearerToken(c); got != "abc123" {
		t.Errorf("bearerToken() = %q, want %q", got, "abc123")
	}
}

func TestBearerTokenFromQueryParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/stats?token=xyz", nil)

	if got := bearerToken(c); got != "xyz" {
		t.Errorf("bearerToken() = %q, want %q", got, "xyz")
	}
}

func TestBearerTokenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/stats", nil)

	if got := bearerToken(c); got != "" {
		t.Errorf("bearerToken() = %q, want empty", got)
	}
}
