package routes

import (
	"net/http"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/container"
	"github.com/daleribragimov115-spec/my-website/internal/handlers"
	"github.com/daleribragimov115-spec/my-website/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Both collection names are served; the site's scripts use /comments.
var reviewResources = []string{"/comments", "/reviews"}

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(c *container.Container) *gin.Engine {
	cfg := c.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", handlers.OwnerTokenHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		// cors rejects credentials together with a wildcard origin.
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.NoRoute(handlers.NotFound())
	r.NoMethod(handlers.MethodNotAllowed())

	rs := c.ReviewService
	limiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(cfg.APIBasePath)
	{
		api.GET("/health", handlers.Health(rs))

		for _, res := range reviewResources {
			g := api.Group(res)
			g.GET("", handlers.ListComments(rs))
			g.POST("", limiter.Handler(), handlers.CreateComment(rs))
			if cfg.Reviews.AllowDelete {
				g.DELETE("/:id", limiter.Handler(), handlers.DeleteComment(rs))
			}
		}

		if c.AdminVerifier != nil {
			admin := api.Group("/admin", middleware.AdminAuth(c.AdminVerifier))
			admin.GET("/comments", handlers.AdminListComments(rs))
			admin.GET("/reviews", handlers.AdminListComments(rs))
		}
	}

	// Platform probes hit /health regardless of the API prefix.
	if cfg.APIBasePath != "" {
		r.GET("/health", handlers.Health(rs))
	}

	return r
}
