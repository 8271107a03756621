package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
	"github.com/Darkzarich/Smiler-sub000/internal/services"
	"github.com/Darkzarich/Smiler-sub000/internal/utils"
)

type VoteHandler struct {
	rating *services.RatingService
}

func NewVoteHandler(rating *services.RatingService) *VoteHandler {
	return &VoteHandler{rating: rating}
}

type voteRequest struct {
	Negative bool `json:"negative"`
}

// Vote handles PUT on a target's vote sub-resource.
func (h *VoteHandler) Vote(kind models.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		targetID := utils.StringToUint(c.Param("id"))
		if targetID == 0 {
			RespondError(c, apperr.Validation("BAD_TARGET_ID", "target id is not valid"))
			return
		}

		var req voteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, apperr.Validation("BAD_BODY", "request body is not valid"))
			return
		}

		target, err := h.rating.Vote(c.Request.Context(), user.ID, targetID, kind, req.Negative)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, target)
	}
}

// Unvote handles DELETE on a target's vote sub-resource.
func (h *VoteHandler) Unvote(kind models.TargetKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		targetID := utils.StringToUint(c.Param("id"))
		if targetID == 0 {
			RespondError(c, apperr.Validation("BAD_TARGET_ID", "target id is not valid"))
			return
		}

		target, err := h.rating.Unvote(c.Request.Context(), user.ID, targetID, kind)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, target)
	}
}
