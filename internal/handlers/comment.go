package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/services"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	Post   uint   `json:"post"`
	Parent *uint  `json:"parent"`
	Body   string `json:"body"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	user := CurrentUser(c)

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperr.Validation("BAD_BODY", "request body is not valid"))
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), user.ID, req.Post, req.Parent, req.Body)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

type editCommentRequest struct {
	Body string `json:"body"`
}

func (h *CommentHandler) Edit(c *gin.Context) {
	user := CurrentUser(c)
	commentID := utils.StringToUint(c.Param("id"))

	var req editCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apperr.Validation("BAD_BODY", "request body is not valid"))
		return
	}

	comment, err := h.comments.Edit(c.Request.Context(), user.ID, commentID, req.Body)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	user := CurrentUser(c)
	commentID := utils.StringToUint(c.Param("id"))

	if err := h.comments.Delete(c.Request.Context(), user.ID, commentID); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": commentID})
}

func (h *CommentHandler) List(c *gin.Context) {
	var viewerID uint
	if user := CurrentUser(c); user != nil {
		viewerID = user.ID
	}

	postID := utils.StringToUint(c.Query("post"))
	limit := utils.StringToInt(c.Query("limit"))
	offset := utils.StringToInt(c.Query("offset"))
	author := c.Query("author")

	page, err := h.comments.ListTopLevel(c.Request.Context(), postID, author, limit, offset, viewerID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
