package middleware

import (
	"net"
	"net/http"
	"time"

	"goodlist/internal/services"

	"github.com/gin-gonic/gin"
)

const GuestIDKey = "guest_id"

type GuestCookieConfig struct {
	Name   string
	MaxAge time.Duration
}

// GuestID makes sure every anonymous visitor carries a valid guest token,
// re-issuing the cookie when it is missing or malformed. The token only
// becomes an account when a handler resolves identity. Runs after LoadUser.
func GuestID(cfg GuestCookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}
		raw, _ := c.Cookie(cfg.Name)
		token, ok := services.ValidGuestToken(raw)
		if !ok {
			token = services.NewGuestToken()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.Name, token, int(cfg.MaxAge.Seconds()), "/", "", secureHost(c.Request.Host), true)
		}
		c.Set(GuestIDKey, token)
		c.Next()
	}
}

func secureHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host != "localhost" && host != "127.0.0.1"
}
