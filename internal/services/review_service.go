package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/connect"
	"github.com/daleribragimov115-spec/my-website/internal/helpers"
	"github.com/daleribragimov115-spec/my-website/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const healthPingTimeout = 2 * time.Second

type ReviewOptions struct {
	RequirePhone bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type ReviewService struct {
	store models.ReviewStore
	cache ReviewCache
	opts  ReviewOptions
	now   func() time.Time
}

func NewReviewService(store models.ReviewStore, cache ReviewCache, opts ReviewOptions) *ReviewService {
	if cache == nil {
		cache = NoopCache{}
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 20 * time.Second
	}
	return &ReviewService{
		store: store,
		cache: cache,
		opts:  opts,
		now:   time.Now,
	}
}

// Create validates the input, stores a new active review and returns it
// together with the owner token needed to delete it later. The token itself
// is never stored.
func (rs *ReviewService) Create(ctx context.Context, in models.ReviewInput) (*models.Review, string, error) {
	clean, err := models.ValidateReviewInput(in, models.InputOptions{RequirePhone: rs.opts.RequirePhone})
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			validationFailures.WithLabelValues(ve.Rule).Inc()
		}
		return nil, "", err
	}

	token, err := helpers.NewOwnerToken()
	if err != nil {
		return nil, "", err
	}

	subscribed := true
	if clean.Subscribed != nil {
		subscribed = *clean.Subscribed
	}
	review := &models.Review{
		Name:           clean.Name,
		Phone:          clean.Phone,
		Rating:         int(clean.Rating),
		Comment:        clean.Comment,
		Timestamp:      rs.now().UTC().Truncate(time.Millisecond),
		Status:         models.StatusActive,
		Subscribed:     subscribed,
		OwnerTokenHash: helpers.HashToken(token),
	}

	writeCtx, cancel := context.WithTimeout(ctx, rs.opts.WriteTimeout)
	defer cancel()

	created, err := rs.store.Insert(writeCtx, review)
	if err != nil {
		if errors.Is(writeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, "", fmt.Errorf("%w: %w", models.ErrStorageTimeout, err)
		}
		if models.IsValidation(err) {
			validationFailures.WithLabelValues(models.RuleSchema).Inc()
		}
		return nil, "", err
	}

	rs.cache.Invalidate(ctx)
	reviewsCreated.Inc()
	return created, token, nil
}

// ListActive returns the public listing, newest first, without phone numbers.
func (rs *ReviewService) ListActive(ctx context.Context) ([]models.PublicReview, error) {
	if cached, ok := rs.cache.GetActive(ctx); ok {
		return models.PublicReviews(cached), nil
	}
	version := rs.cache.Version(ctx)

	readCtx, cancel := context.WithTimeout(ctx, rs.opts.ReadTimeout)
	defer cancel()
	reviews, err := rs.store.FindByStatus(readCtx, models.StatusActive)
	if err != nil {
		return nil, readError(readCtx, ctx, err)
	}
	rs.cache.SetActive(ctx, reviews, version)
	return models.PublicReviews(reviews), nil
}

// ListAll is the moderation view: every status, phone included.
func (rs *ReviewService) ListAll(ctx context.Context) ([]*models.Review, error) {
	readCtx, cancel := context.WithTimeout(ctx, rs.opts.ReadTimeout)
	defer cancel()
	reviews, err := rs.store.FindAll(readCtx)
	if err != nil {
		return nil, readError(readCtx, ctx, err)
	}
	return reviews, nil
}

// Delete soft deletes an active review when token matches the one issued at
// creation time.
func (rs *ReviewService) Delete(ctx context.Context, id, token string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrReviewNotFound
	}

	opCtx, cancel := context.WithTimeout(ctx, rs.opts.WriteTimeout)
	defer cancel()

	review, err := rs.store.FindByID(opCtx, oid)
	if err != nil {
		return readError(opCtx, ctx, err)
	}
	if !review.IsActive() {
		return models.ErrReviewNotFound
	}
	if !helpers.TokenMatches(token, review.OwnerTokenHash) {
		return models.ErrNotOwner
	}

	if err := rs.store.UpdateStatus(opCtx, oid, models.StatusDeleted); err != nil {
		return readError(opCtx, ctx, err)
	}
	rs.cache.Invalidate(ctx)
	return nil
}

// Health reports the store's ready state and a bounded ping. It never
// triggers a reconnect.
func (rs *ReviewService) Health(ctx context.Context) models.DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	rtt, err := rs.store.Ping(ctx)
	state := rs.store.ReadyState()

	h := models.DatabaseHealth{
		Status:     "disconnected",
		ReadyState: state,
	}
	if state == connect.StateConnected {
		h.Status = "connected"
	}
	if err == nil {
		ms := float64(rtt.Microseconds()) / 1000
		h.Ping = &ms
	}
	return h
}

// readError tags a failure caused by the read bound (not by the caller
// going away) as a storage timeout.
func readError(readCtx, ctx context.Context, err error) error {
	if errors.Is(readCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil && !errors.Is(err, models.ErrStorageTimeout) {
		return fmt.Errorf("%w: %w", models.ErrStorageTimeout, err)
	}
	return err
}
