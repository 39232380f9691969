package handlers

import (
	"errors"
	"net/http"

	"goodlist/internal/logger"
	"goodlist/internal/middleware"
	"goodlist/internal/models"
	"goodlist/internal/services"
	"goodlist/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError maps a service error onto an HTTP response.
func RespondError(c *gin.Context, err error) {
	var forbidden *services.ListForbiddenError
	switch {
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "this list is private", "code": "list_private", "list": forbidden})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "unauthorized"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied", "code": "forbidden"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "conflict"})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
	case errors.Is(err, services.ErrFetchFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch content information", "code": "fetch_failed"})
	default:
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// BadRequest answers a binding failure.
func BadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_input"})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": "invalid_input"})
	}
	return id, ok
}

// actor resolves the caller for a mutation, creating the guest account on
// first use. It writes the error response itself.
func actor(c *gin.Context, identity *services.IdentityService) (*models.User, bool) {
	u, err := identity.RequireActor(c.Request.Context(), middleware.Evidence(c))
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	return u, true
}

// viewer is the caller for a read, or nil. Reads never create accounts.
func viewer(c *gin.Context, identity *services.IdentityService) (*models.User, bool) {
	u, err := identity.Lookup(c.Request.Context(), middleware.Evidence(c))
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	return u, true
}
