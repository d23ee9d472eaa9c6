package container

import (
	"context"
	"errors"

	"github.com/daleribragimov115-spec/my-website/internal/config"
	"github.com/daleribragimov115-spec/my-website/internal/connect"
	"github.com/daleribragimov115-spec/my-website/internal/helpers"
	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/daleribragimov115-spec/my-website/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config

	Guard *connect.Guard // nil when reviews are kept in memory
	Store models.ReviewStore
	Redis *redis.Client

	AdminVerifier *helpers.AdminVerifier // nil when admin access is not configured
	ReviewService *services.ReviewService
}

// NewContainer connects to the backing services and wires the review service.
// An unreachable MongoDB does not fail startup: the guard keeps reconnecting
// on demand and health reports the database as disconnected meanwhile.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	if cfg.Mongo.UsesMemory() {
		log.Warn().Msg("MONGODB_URI is memory://, reviews will not survive a restart")
		c.Store = models.NewMemoryRepo()
	} else {
		c.Store = c.connectMongo(ctx)
	}

	var cache services.ReviewCache = services.NoopCache{}
	if cfg.RedisURL != "" {
		rdb, err := connect.RedisConnect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("review list cache disabled")
		} else {
			c.Redis = rdb
			cache = services.NewRedisCache(rdb, cfg.CacheTTL)
		}
	}

	if cfg.Admin.Enabled() {
		v, err := helpers.NewAdminVerifier(ctx, cfg.Admin.JWTSecret, cfg.Admin.JWKSURL)
		if err != nil {
			return nil, err
		}
		c.AdminVerifier = v
	} else {
		log.Warn().Msg("ADMIN_JWT_SECRET and ADMIN_JWKS_URL are unset, admin listing is disabled")
	}

	c.ReviewService = services.NewReviewService(c.Store, cache, services.ReviewOptions{
		RequirePhone: cfg.Reviews.RequirePhone,
		ReadTimeout:  cfg.Reviews.ReadTimeout,
		WriteTimeout: cfg.Reviews.WriteTimeout,
	})
	return c, nil
}

func (c *Container) connectMongo(ctx context.Context) *models.MongodbRepo {
	m := c.Config.Mongo
	dial := func(ctx context.Context) (*mongo.Client, error) {
		return connect.MongoDBConnect(ctx, m.URI, m.ConnectTimeout)
	}

	client, err := dial(ctx)
	if err != nil {
		log.Error().Err(err).Msg("initial MongoDB connection failed, will retry on demand")
	}

	policy := connect.DefaultReconnectPolicy()
	policy.MaxAttempts = m.ReconnectAttempts
	policy.Delay = m.ReconnectDelay
	policy.Cooldown = m.ReconnectCooldown

	c.Guard = connect.NewGuard(client, dial, policy)
	c.Guard.OnReconnectAttempt = services.ObserveReconnectAttempt

	repo := models.MongodbNewRepo(c.Guard, m.Database, m.Collection)
	if client != nil {
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure review indexes")
		}
	}
	return repo
}

// Close releases every connection the container opened.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Guard != nil {
		errs = append(errs, c.Guard.Close(ctx))
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	c.AdminVerifier.Close()
	return errors.Join(errs...)
}
