package handlers

import (
	"net/http"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/daleribragimov115-spec/my-website/internal/services"
	"github.com/gin-gonic/gin"
)

// Health always answers 200; the database block says whether storage is usable.
func Health(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Success:   true,
			Message:   "server is running",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Database:  rs.Health(c.Request.Context()),
		})
	}
}

func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse("not found"))
	}
}

func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse("method not allowed"))
	}
}
