package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginAllowed reports whether a browser origin may talk to us. An empty
// allow-list admits same-host and localhost origins only.
func OriginAllowed(allowed []string, origin, host string) bool {
	if origin == "" {
		return true // non-browser client
	}
	if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
		return true
	}
	if len(allowed) > 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	h := u.Hostname()
	return strings.EqualFold(u.Host, host) || h == "localhost" || h == "127.0.0.1"
}

// CheckOrigin adapts OriginAllowed for the websocket upgrader.
func CheckOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return OriginAllowed(allowed, r.Header.Get("Origin"), r.Host)
	}
}

// Origin is the CORS middleware (credentials allowed, so the origin is echoed).
func Origin(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if !OriginAllowed(allowed, origin, c.Request.Host) {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
