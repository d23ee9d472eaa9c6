package handlers

import (
	"errors"
	"net/http"

	"github.com/daleribragimov115-spec/my-website/internal/middleware"
	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	msgUnavailable = "database unavailable, please try again later"
	msgTimeout     = "the server took too long to save your review, please try again later"
	msgListFailed  = "failed to load reviews"
)

// fail writes the error envelope and logs anything that is the server's fault.
func fail(c *gin.Context, status int, msg string, err error) {
	if status >= http.StatusInternalServerError && err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Int("status", status).Msg(msg)
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse(msg))
}

// failCreate maps a create failure onto the documented statuses and messages.
func failCreate(c *gin.Context, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ve.Message, err)
	case errors.Is(err, models.ErrStorageTimeout):
		fail(c, http.StatusGatewayTimeout, msgTimeout, err)
	case errors.Is(err, models.ErrStorageUnavailable):
		fail(c, http.StatusInternalServerError, msgUnavailable, err)
	default:
		fail(c, http.StatusInternalServerError, "server error: "+err.Error(), err)
	}
}

func failRead(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrStorageUnavailable):
		fail(c, http.StatusInternalServerError, msgUnavailable, err)
	case errors.Is(err, models.ErrStorageTimeout):
		fail(c, http.StatusGatewayTimeout, "the database took too long to respond", err)
	default:
		fail(c, http.StatusInternalServerError, msgListFailed, err)
	}
}

func failDelete(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrReviewNotFound):
		fail(c, http.StatusNotFound, "review not found", err)
	case errors.Is(err, models.ErrNotOwner):
		fail(c, http.StatusForbidden, "you can only delete your own review", err)
	default:
		failRead(c, err)
	}
}
