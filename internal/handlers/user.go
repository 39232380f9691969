package handlers

import (
	"net/http"

	"goodlist/internal/models"
	"goodlist/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	identity *services.IdentityService
	lists    *services.ListService
}

func NewUserHandler(identity *services.IdentityService, lists *services.ListService) *UserHandler {
	return &UserHandler{identity: identity, lists: lists}
}

func meResponse(u *models.User) gin.H {
	var email string
	if u.Email != nil {
		email = *u.Email
	}
	return gin.H{
		"id":           u.ID,
		"username":     u.UsernameOrEmpty(),
		"email":        email,
		"display_name": u.DisplayName(),
		"is_guest":     u.IsGuest(),
		"private":      u.Private,
	}
}

// Me resolves the caller, guests included.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, meResponse(user))
}

type renameRequest struct {
	Username string `json:"username" binding:"required,max=150"`
}

// Rename claims a username for a guest, or changes the current one.
func (h *UserHandler) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	user, err := h.identity.ClaimUsername(c.Request.Context(), user, req.Username)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meResponse(user))
}

type privateRequest struct {
	Private *bool `json:"private" binding:"required"`
}

func (h *UserHandler) SetPrivate(c *gin.Context) {
	var req privateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	user, err := h.identity.SetPrivate(c.Request.Context(), user, *req.Private)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meResponse(user))
}

// Lists returns the public lists of a user; everything when it is the caller.
func (h *UserHandler) Lists(c *gin.Context) {
	v, ok := viewer(c, h.identity)
	if !ok {
		return
	}
	lists, err := h.lists.ByUsername(c.Request.Context(), v, c.Param("username"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *UserHandler) Favorites(c *gin.Context) {
	v, ok := viewer(c, h.identity)
	if !ok {
		return
	}
	lists, err := h.lists.FavoritesByUsername(c.Request.Context(), v, c.Param("username"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}
