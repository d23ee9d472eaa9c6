package handlers

import (
	"net/http"
	"strings"

	"github.com/daleribragimov115-spec/my-website/internal/middleware"
	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/daleribragimov115-spec/my-website/internal/services"
	"github.com/gin-gonic/gin"
)

const OwnerTokenHeader = "X-Owner-Token"

func ListComments(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviews, err := rs.ListActive(c.Request.Context())
		if err != nil {
			failRead(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ListOf(reviews, len(reviews)))
	}
}

func CreateComment(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in models.ReviewInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request body"))
			return
		}

		created, token, err := rs.Create(c.Request.Context(), in)
		if err != nil {
			failCreate(c, err)
			return
		}

		middleware.LoggerFrom(c).Info().
			Str("review_id", created.ID.Hex()).
			Int("rating", created.Rating).
			Msg("review created")

		c.JSON(http.StatusCreated, models.CreateResponse{
			Success:    true,
			Message:    "review added successfully",
			Comment:    created.Public(),
			OwnerToken: token,
		})
	}
}

func DeleteComment(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		token := strings.TrimSpace(c.GetHeader(OwnerTokenHeader))

		if err := rs.Delete(c.Request.Context(), id, token); err != nil {
			failDelete(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse("review deleted"))
	}
}

// AdminListComments returns every review regardless of status, phone included.
func AdminListComments(rs *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviews, err := rs.ListAll(c.Request.Context())
		if err != nil {
			failRead(c, err)
			return
		}

		ev := middleware.LoggerFrom(c).Info().Int("total", len(reviews))
		if claims, ok := middleware.AdminClaimsFrom(c); ok {
			ev = ev.Str("admin", claims.Subject).Str("role", claims.GetSafeRole())
		}
		ev.Msg("admin listing served")

		c.JSON(http.StatusOK, models.ListOf(reviews, len(reviews)))
	}
}
