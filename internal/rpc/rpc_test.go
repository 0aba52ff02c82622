package rpc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"sonar/internal/sonarerr"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantHas   bool
	}{
		{"both bounds", "bytes=100-199", 100, 199, true},
		{"open ended", "bytes=500-", 500, 0, false},
		{"malformed", "not-a-range", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, hasEnd := parseRange(tt.header)
			if start != tt.wantStart || end != tt.wantEnd || hasEnd != tt.wantHas {
				t.Errorf("parseRange(%q) = (%d, %d, %v), want (%d, %d, %v)",
					tt.header, start, end, hasEnd, tt.wantStart, tt.wantEnd, tt.wantHas)
			}
		})
	}
}

func TestQueryPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/artists?offset=10&count=5", nil)

	offset, count := queryPage(c)
	if offset == nil || *offset != 10 {
		t.Errorf("queryPage() offset = %v, want 10", offset)
	}
	if count == nil || *count != 5 {
		t.Errorf("queryPage() count = %v, want 5", count)
	}
}

func TestQueryPageAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/artists", nil)

	offset, count := queryPage(c)
	if offset != nil || count != nil {
		t.Errorf("queryPage() = (%v, %v), want (nil, nil)", offset, count)
	}
}

func TestBearerTokenFromHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/artists", nil)
	c.Request.Header.Set("Authorization", "Bearer sometoken")

	if got := bearerToken(c); got != "sometoken" {
		t.Errorf("bearerToken() = %q, want %q", got, "sometoken")
	}
}

func TestWriteErrorMapsKindsToStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err        error
		wantStatus int
	}{
		{sonarerr.NotFound("track", "track_1"), http.StatusNotFound},
		{sonarerr.InvalidArgument("name", "required"), http.StatusBadRequest},
		{sonarerr.Conflict("taken"), http.StatusConflict},
		{sonarerr.Unauthenticated(), http.StatusUnauthorized},
		{sonarerr.PermissionDenied(), http.StatusForbidden},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tt.err)
		if w.Code != tt.wantStatus {
			t.Errorf("writeError(%v) status = %d, want %d", tt.err, w.Code, tt.wantStatus)
		}
	}
}
