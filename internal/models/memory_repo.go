package models

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo keeps reviews in process memory. It backs MONGODB_URI=memory://
// for local development and the service tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	reviews []*Review
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{now: time.Now}
}

func (m *MemoryRepo) Insert(ctx context.Context, review *Review) (*Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	review.BeforeCreate(m.now())
	if err := review.ValidateReview(); err != nil {
		return nil, err
	}

	stored := *review
	m.mu.Lock()
	m.reviews = append(m.reviews, &stored)
	m.mu.Unlock()
	return review, nil
}

func (m *MemoryRepo) FindByStatus(ctx context.Context, status string) ([]*Review, error) {
	return m.collect(ctx, func(r *Review) bool { return r.Status == status }, true)
}

func (m *MemoryRepo) FindAll(ctx context.Context) ([]*Review, error) {
	return m.collect(ctx, func(*Review) bool { return true }, false)
}

func (m *MemoryRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviews {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrReviewNotFound
}

func (m *MemoryRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ID == id {
			r.Status = status
			return nil
		}
	}
	return ErrReviewNotFound
}

func (m *MemoryRepo) Ping(ctx context.Context) (time.Duration, error) {
	return 0, ctx.Err()
}

func (m *MemoryRepo) ReadyState() int {
	return 1
}

func (m *MemoryRepo) collect(ctx context.Context, keep func(*Review) bool, hidePhone bool) ([]*Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]*Review, 0, len(m.reviews))
	for i := len(m.reviews) - 1; i >= 0; i-- {
		r := m.reviews[i]
		if !keep(r) {
			continue
		}
		cp := *r
		cp.OwnerTokenHash = ""
		if hidePhone {
			cp.Phone = ""
		}
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	// Walking backwards and sorting stably keeps later inserts first on equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}
