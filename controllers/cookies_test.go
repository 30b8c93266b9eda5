package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestIsLoopbackOrigin(t *testing.T) {
	cases := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://localhost", true},
		{"http://127.0.0.1:5173", true},
		{"http://[::1]:8080", true},
		{"https://learnlab.example.com", false},
		{"https://127.0.0.1.evil.com", false},
		{"not a url", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isLoopbackOrigin(tc.origin); got != tc.want {
			t.Errorf("isLoopbackOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func cookiesFrom(t *testing.T, origin string) []*http.Cookie {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/set", func(c *gin.Context) {
		setAuthCookies(c, "a-token", "r-token", 15*time.Minute, 7*24*time.Hour)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/set", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Result().Cookies()
}

func TestCookiePolicyLoopback(t *testing.T) {
	cookies := cookiesFrom(t, "http://localhost:3000")
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.True(t, c.HttpOnly)
		require.False(t, c.Secure)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite)
		require.Equal(t, "/", c.Path)
	}
}

func TestCookiePolicyExternalOrigin(t *testing.T) {
	cookies := cookiesFrom(t, "https://app.learnlab.io")
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.True(t, c.HttpOnly)
		require.True(t, c.Secure)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	}
}

func TestCookiePolicyNoOriginFallsBackToReferer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/set", func(c *gin.Context) {
		setAuthCookies(c, "a", "r", time.Minute, time.Hour)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/set", nil)
	req.Header.Set("Referer", "http://127.0.0.1:5173/login")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		require.False(t, c.Secure)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	}
}
