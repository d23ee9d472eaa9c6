package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/daleribragimov115-spec/my-website/internal/models"
)

const pseudoIDKey = "pseudo_user_id"

// LocalReview is a submission kept on this machine while the server was
// unreachable. PseudoID ties it to the installation that wrote it.
type LocalReview struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	PseudoID   string `gorm:"type:char(36);not null;index"`
	Name       string `gorm:"not null"`
	Phone      string
	Rating     int    `gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Comment    string `gorm:"type:text;not null"`
	Subscribed bool
	CreatedAt  time.Time `gorm:"index"`
	SyncedAt   *time.Time
	ServerID   string
}

// OwnedReview remembers the owner token of a review this installation
// created on the server, so it can be deleted later.
type OwnedReview struct {
	ServerID   string `gorm:"type:char(24);primaryKey"`
	OwnerToken string `gorm:"not null"`
	CreatedAt  time.Time
}

// SyncedError is returned when a local review has already been sent to the
// server; deleting it means deleting ServerID there.
type SyncedError struct {
	ServerID string
}

func (e *SyncedError) Error() string {
	return "review was already sent to the server as " + e.ServerID
}

type identity struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

type Journal struct {
	db       *gorm.DB
	pseudoID string
	now      func() time.Time
}

// OpenJournal opens (or creates) the SQLite journal at path. Use
// "file::memory:" style DSNs in tests.
func OpenJournal(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if err := db.AutoMigrate(&LocalReview{}, &OwnedReview{}, &identity{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	j := &Journal{db: db, now: time.Now}
	if err := j.loadIdentity(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) loadIdentity() error {
	id := identity{Key: pseudoIDKey, Value: uuid.NewString()}
	// Keeps the existing value when the row is already there.
	if err := j.db.Where(identity{Key: pseudoIDKey}).FirstOrCreate(&id).Error; err != nil {
		return fmt.Errorf("failed to load installation id: %w", err)
	}
	j.pseudoID = id.Value
	return nil
}

func (j *Journal) PseudoID() string {
	return j.pseudoID
}

// Add stores a review that has already passed validation.
func (j *Journal) Add(ctx context.Context, in models.ReviewInput) (*LocalReview, error) {
	subscribed := true
	if in.Subscribed != nil {
		subscribed = *in.Subscribed
	}
	r := &LocalReview{
		ID:         uuid.NewString(),
		PseudoID:   j.pseudoID,
		Name:       in.Name,
		Phone:      in.Phone,
		Rating:     int(in.Rating),
		Comment:    in.Comment,
		Subscribed: subscribed,
		CreatedAt:  j.now().UTC(),
	}
	if err := j.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, fmt.Errorf("failed to save review offline: %w", err)
	}
	return r, nil
}

// Pending lists reviews not yet pushed to the server, newest first.
func (j *Journal) Pending(ctx context.Context) ([]LocalReview, error) {
	var out []LocalReview
	err := j.db.WithContext(ctx).
		Where("synced_at IS NULL").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return out, nil
}

// Delete removes a pending local review. Only the installation that wrote
// it may do so; this is a convenience guard, not access control. A review
// that was already synced is left alone and reported with *SyncedError.
func (j *Journal) Delete(ctx context.Context, id string) error {
	var r LocalReview
	if err := j.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ErrReviewNotFound
		}
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if r.PseudoID != j.pseudoID {
		return models.ErrNotOwner
	}
	if r.SyncedAt != nil {
		return &SyncedError{ServerID: r.ServerID}
	}
	return j.db.WithContext(ctx).Delete(&LocalReview{}, "id = ?", id).Error
}

// MarkSynced records that a local review now exists on the server.
func (j *Journal) MarkSynced(ctx context.Context, id, serverID, ownerToken string) error {
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := j.now().UTC()
		res := tx.Model(&LocalReview{}).
			Where("id = ? AND synced_at IS NULL", id).
			Updates(map[string]any{"synced_at": now, "server_id": serverID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrReviewNotFound
		}
		return tx.Save(&OwnedReview{ServerID: serverID, OwnerToken: ownerToken, CreatedAt: now}).Error
	})
}

func (j *Journal) RememberOwner(ctx context.Context, serverID, ownerToken string) error {
	return j.db.WithContext(ctx).Save(&OwnedReview{
		ServerID:   serverID,
		OwnerToken: ownerToken,
		CreatedAt:  j.now().UTC(),
	}).Error
}

// OwnerToken returns the token saved for serverID, or "" when unknown.
func (j *Journal) OwnerToken(ctx context.Context, serverID string) (string, error) {
	var o OwnedReview
	err := j.db.WithContext(ctx).First(&o, "server_id = ?", serverID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return o.OwnerToken, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
