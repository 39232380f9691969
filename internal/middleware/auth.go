package middleware

import (
	"net/http"
	"strings"

	"goodlist/internal/logger"
	"goodlist/internal/models"
	"goodlist/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CheckUserKey   = "user"
	SessionUserKey = "user_id"
)

// AuthRequired rejects requests without an authenticated account. Guests do
// not pass.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
			return
		}
		c.Next()
	}
}

// LoadUser retrieves the account from the session, or from a bearer token,
// and sets it on the context.
func LoadUser(identity *services.IdentityService, tokens *services.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := sessions.Default(c).Get(SessionUserKey).(uint); ok {
			setUser(c, identity, id)
		} else if token := bearerToken(c); token != "" {
			id, err := tokens.Parse(token)
			if err != nil {
				logger.Debug("Rejected bearer token", zap.Error(err))
			} else {
				setUser(c, identity, id)
			}
		}
		c.Next()
	}
}

func setUser(c *gin.Context, identity *services.IdentityService, id uint) {
	user, err := identity.GetByID(c.Request.Context(), id)
	if err != nil {
		logger.Debug("Session user not loaded", zap.Uint("user_id", id), zap.Error(err))
		return
	}
	if !user.IsActive {
		return
	}
	c.Set(CheckUserKey, user)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// CurrentUser is the authenticated account, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// Evidence collects what the request carries about its caller.
func Evidence(c *gin.Context) services.Evidence {
	return services.Evidence{
		User:       CurrentUser(c),
		GuestToken: c.GetString(GuestIDKey),
	}
}
