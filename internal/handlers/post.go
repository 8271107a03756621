package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/services"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *PostHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperr.Validation("BAD_BODY", "request body is not valid"))
		return
	}

	post, err := h.posts.Create(c.Request.Context(), user.ID, req.Title, req.Body)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Get(c *gin.Context) {
	var viewerID uint
	if user := CurrentUser(c); user != nil {
		viewerID = user.ID
	}

	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"), viewerID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) List(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"))
	offset := utils.StringToInt(c.Query("offset"))

	page, err := h.posts.List(c.Request.Context(), limit, offset)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	postID := utils.StringToUint(c.Param("id"))

	if err := h.posts.Delete(c.Request.Context(), user.ID, postID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": postID})
}
