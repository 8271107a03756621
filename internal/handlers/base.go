package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Darkzarich/Smiler-sub000/internal/apperr"
	"github.com/Darkzarich/Smiler-sub000/internal/middleware"
	"github.com/Darkzarich/Smiler-sub000/internal/models"
)

// CurrentUser returns the authenticated user, or nil for anonymous
// requests.
func CurrentUser(c *gin.Context) *models.User {
	if user, exists := c.Get(middleware.CheckUserKey); exists {
		return user.(*models.User)
	}
	return nil
}

// RespondError maps the error taxonomy onto HTTP statuses. Operational
// errors pass their code and message through; anything else is logged with
// context and surfaced as an opaque 500.
func RespondError(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "INTERNAL", "message": "internal error"},
		})
		return
	}

	var ae *apperr.Error
	message := "request failed"
	if errors.As(err, &ae) {
		message = ae.Message
	}
	c.JSON(status, gin.H{
		"error": gin.H{"code": apperr.CodeOf(err), "message": message},
	})
}
