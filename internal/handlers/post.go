package handlers

import (
	"net/http"

	"goodlist/internal/services"
	"goodlist/internal/utils"

	"github.com/gin-gonic/gin"
)

const postPageSize = 100

type PostHandler struct {
	identity *services.IdentityService
	posts    *services.PostService
	feed     *services.FeedService
}

func NewPostHandler(identity *services.IdentityService, posts *services.PostService, feed *services.FeedService) *PostHandler {
	return &PostHandler{identity: identity, posts: posts, feed: feed}
}

type createPostRequest struct {
	ContentURL  string `json:"content_url" binding:"required,url"`
	Description string `json:"description"`
	ContentType string `json:"content_type" binding:"max=200"`
	ListID      *uint  `json:"list_id"`
}

type movePostRequest struct {
	ListID uint `json:"list_id" binding:"required"`
}

// List returns recent posts, filtered by ?user_id= when given.
func (h *PostHandler) List(c *gin.Context) {
	v, ok := viewer(c, h.identity)
	if !ok {
		return
	}
	var userID *uint
	if raw := c.Query("user_id"); raw != "" {
		id, ok := utils.ParseID(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id", "code": "invalid_input"})
			return
		}
		userID = &id
	}
	posts, err := h.posts.List(c.Request.Context(), v, userID, postPageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	v, ok := viewer(c, h.identity)
	if !ok {
		return
	}
	post, err := h.posts.Get(c.Request.Context(), v, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	post, err := h.posts.Create(c.Request.Context(), user, services.CreatePostInput{
		ContentURL:  req.ContentURL,
		Description: req.Description,
		ContentType: req.ContentType,
		ListID:      req.ListID,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), user, id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) Move(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req movePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err)
		return
	}
	user, ok := actor(c, h.identity)
	if !ok {
		return
	}
	post, err := h.posts.Move(c.Request.Context(), user, id, req.ListID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Feed is the public feed of recent posts.
func (h *PostHandler) Feed(c *gin.Context) {
	posts, err := h.feed.Recent(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}
