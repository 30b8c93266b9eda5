package controllers

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnlab/backend/token"
)

const (
	accessCookieName  = token.AccessCookieName
	refreshCookieName = token.RefreshCookieName
)

type cookiePolicy struct {
	secure   bool
	sameSite http.SameSite
}

// policyFor decides cookie attributes from the request's declared origin.
// Loopback origins get relaxed attributes so local frontends work over
// plain http; everything else is Secure + SameSite=Strict.
func policyFor(c *gin.Context) cookiePolicy {
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = c.GetHeader("Referer")
	}
	if isLoopbackOrigin(origin) {
		return cookiePolicy{secure: false, sameSite: http.SameSiteLaxMode}
	}
	return cookiePolicy{secure: true, sameSite: http.SameSiteStrictMode}
}

func isLoopbackOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func setAuthCookies(c *gin.Context, access, refresh string, accessTTL, refreshTTL time.Duration) {
	p := policyFor(c)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     accessCookieName,
		Value:    access,
		Path:     "/",
		MaxAge:   int(accessTTL.Seconds()),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: p.sameSite,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    refresh,
		Path:     "/",
		MaxAge:   int(refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: p.sameSite,
	})
}

// clearAuthCookies must mirror the attribute set used when setting the
// cookies or some clients will not remove them.
func clearAuthCookies(c *gin.Context) {
	p := policyFor(c)
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   p.secure,
			SameSite: p.sameSite,
		})
	}
}
