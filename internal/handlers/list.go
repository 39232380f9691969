package handlers

import (
	"net/http"

	"goodlist/internal/services"

	"github.com/gin-gonic/gin"
)

type ListHandler struct {
	identity   *services.IdentityService
	lists      *services.ListService
	engagement *services.EngagementService
}

func NewListHandler(identity *services.IdentityService, lists *services.ListService, engagement *services.EngagementService) *ListHandler {
	return &ListHandler{identity: identity, lists: lists, engagement: engagement}
}

type createListRequest struct {
	Name        string `json:"name" binding:"required,listname"`
	Description string `json:"description"`
	IsPublic    *bool  `json:"is_public"`
}

type updateListRequest struct {
	Name        *string `json:"name" binding:"omitempty,listname"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
}

// Mine lists the caller's own lists, private ones included.
func (h *ListHandler) Mine(c *gin.Context) {
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	lists, err := h.lists.Mine(c.Request.Context(), user)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

func (h *ListHandler) Create(c *gin.Context) {
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	list, err := h.lists.Create(c.Request.Context(), user, req.Name, req.Description, isPublic)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h *ListHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, ok := viewer(c, h.identity)
	if !ok {
		return
	}
	detail, err := h.lists.GetVisible(c.Request.Context(), v, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update applies any of rename, description and visibility. Each change is
// its own write; a rename conflict leaves the name untouched.
func (h *ListHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req updateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if req.Name != nil {
		if _, err := h.lists.Rename(ctx, user, id, *req.Name); err != nil {
			RespondError(c, err)
			return
		}
	}
	if req.Description != nil {
		if _, err := h.lists.UpdateDescription(ctx, user, id, *req.Description); err != nil {
			RespondError(c, err)
			return
		}
	}
	if req.IsPublic != nil {
		if _, err := h.lists.SetVisibility(ctx, user, id, *req.IsPublic); err != nil {
			RespondError(c, err)
			return
		}
	}

	detail, err := h.lists.GetVisible(ctx, user, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// TogglePublic flips the visibility of a list.
func (h *ListHandler) TogglePublic(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	current, err := h.lists.GetVisible(ctx, user, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	list, err := h.lists.SetVisibility(ctx, user, id, !current.IsPublic)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": list.ID, "is_public": list.IsPublic})
}

func (h *ListHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	if err := h.lists.Delete(c.Request.Context(), user, id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Goot toggles the caller's like on a list.
func (h *ListHandler) Goot(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	res, err := h.engagement.ToggleGoot(c.Request.Context(), user, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	if res.NewLikeDisabled {
		c.JSON(http.StatusForbidden, gin.H{
			"detail":     "new_favorite_disabled",
			"is_goot":    false,
			"goot_count": res.GootCount,
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Favorites lists what the caller has gooted.
func (h *ListHandler) Favorites(c *gin.Context) {
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	lists, err := h.lists.Favorites(c.Request.Context(), user)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}
