package handlers

import (
	"net/http"

	"goodlist/internal/services"

	"github.com/gin-gonic/gin"
)

const contentPageSize = 100

type ContentHandler struct {
	identity   *services.IdentityService
	contents   *services.ContentService
	engagement *services.EngagementService
}

func NewContentHandler(identity *services.IdentityService, contents *services.ContentService, engagement *services.EngagementService) *ContentHandler {
	return &ContentHandler{identity: identity, contents: contents, engagement: engagement}
}

type contentRequest struct {
	ContentURL  string `json:"content_url" binding:"required,url"`
	ContentType string `json:"content_type" binding:"max=200"`
}

type goodRequest struct {
	ContentURL string `json:"content_url" binding:"required,url"`
}

func (h *ContentHandler) List(c *gin.Context) {
	contents, err := h.contents.List(c.Request.Context(), contentPageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contents)
}

func (h *ContentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cd, err := h.contents.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cd)
}

// Create registers a URL's metadata without liking it.
func (h *ContentHandler) Create(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	if _, ok := actor(c, h.identity); !ok {
		return
	}
	cd, err := h.contents.FetchOrCreate(c.Request.Context(), req.ContentURL, req.ContentType)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cd)
}

// Good toggles the caller's like on an aggregate by id.
func (h *ContentHandler) Good(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	res, err := h.engagement.ToggleGoodByID(c.Request.Context(), user, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GoodByURL toggles the caller's like on a URL, registering it if needed.
func (h *ContentHandler) GoodByURL(c *gin.Context) {
	var req goodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	res, err := h.engagement.ToggleGood(c.Request.Context(), user, req.ContentURL)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
