package client

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/daleribragimov115-spec/my-website/internal/models"
)

// ReviewsView is the listing screen: server reviews, optionally topped up
// with offline submissions, revealed a page at a time.
type ReviewsView struct {
	API          *Client
	Journal      *Journal // remembers owner tokens; holds offline submissions
	Offline      bool     // fall back to the journal when the server is unreachable
	RequirePhone bool

	Pager    Pager[Entry]
	Degraded bool // last Load could not reach the server
}

type SubmitResult struct {
	Local      bool
	ID         string
	OwnerToken string
}

// Load refreshes the listing and resets paging. On failure the previous
// state is kept, unless the server is unreachable in offline mode, in
// which case only local reviews are shown.
func (v *ReviewsView) Load(ctx context.Context) error {
	remote, err := v.API.List(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnreachable) || !v.offline() {
			return err
		}
		local, jerr := v.localEntries(ctx)
		if jerr != nil {
			return errors.Join(err, jerr)
		}
		v.Pager = Load(local)
		v.Degraded = true
		return nil
	}

	entries := make([]Entry, 0, len(remote))
	if v.offline() {
		local, err := v.localEntries(ctx)
		if err != nil {
			return err
		}
		entries = append(entries, local...)
	}
	for _, r := range remote {
		entries = append(entries, Entry{
			ID:        r.ID.Hex(),
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			Timestamp: r.Timestamp,
			Status:    r.Status,
		})
	}
	// Offline submissions and server reviews interleave by time.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	v.Pager = Load(entries)
	v.Degraded = false
	return nil
}

// More reveals the next page.
func (v *ReviewsView) More() []Entry {
	var page []Entry
	v.Pager, page = NextPage(v.Pager)
	return page
}

// Submit validates locally, checks the server is up, posts the review and
// reloads the listing. In offline mode an unreachable server means the
// review is saved locally instead.
func (v *ReviewsView) Submit(ctx context.Context, in models.ReviewInput) (*SubmitResult, error) {
	clean, err := models.ValidateReviewInput(in, models.InputOptions{RequirePhone: v.RequirePhone})
	if err != nil {
		return nil, err
	}

	if _, err := v.API.Health(ctx); err != nil {
		return v.saveOffline(ctx, clean, err)
	}

	created, err := v.API.Submit(ctx, clean)
	if err != nil {
		return v.saveOffline(ctx, clean, err)
	}

	res := &SubmitResult{ID: created.Comment.ID.Hex(), OwnerToken: created.OwnerToken}
	if v.Journal != nil && created.OwnerToken != "" {
		if err := v.Journal.RememberOwner(ctx, res.ID, created.OwnerToken); err != nil {
			return res, fmt.Errorf("review saved but its owner token could not be stored: %w", err)
		}
	}

	if err := v.Load(ctx); err != nil {
		return res, fmt.Errorf("review saved but the list could not be refreshed: %w", err)
	}
	return res, nil
}

// Sync pushes pending offline reviews and returns how many were accepted.
func (v *ReviewsView) Sync(ctx context.Context) (int, error) {
	if v.Journal == nil {
		return 0, nil
	}
	pending, err := v.Journal.Pending(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	// Oldest first so the server keeps the original order.
	for i := len(pending) - 1; i >= 0; i-- {
		p := pending[i]
		sub := p.Subscribed
		created, err := v.API.Submit(ctx, models.ReviewInput{
			Name:       p.Name,
			Phone:      p.Phone,
			Rating:     models.Rating(p.Rating),
			Comment:    p.Comment,
			Subscribed: &sub,
		})
		if err != nil {
			return synced, err
		}
		if err := v.Journal.MarkSynced(ctx, p.ID, created.Comment.ID.Hex(), created.OwnerToken); err != nil {
			return synced, err
		}
		synced++
	}
	return synced, nil
}

// Delete removes a local pending review by its journal id, or a server
// review using the owner token saved when it was submitted. A journal id
// of a review that was synced since deletes its server copy.
func (v *ReviewsView) Delete(ctx context.Context, id, ownerToken string) error {
	if v.Journal != nil {
		err := v.Journal.Delete(ctx, id)
		var synced *SyncedError
		switch {
		case err == nil:
			return v.Load(ctx)
		case errors.As(err, &synced):
			id = synced.ServerID
		case !errors.Is(err, models.ErrReviewNotFound):
			return err
		}
		if ownerToken == "" {
			if ownerToken, err = v.Journal.OwnerToken(ctx, id); err != nil {
				return err
			}
		}
	}
	if err := v.API.Delete(ctx, id, ownerToken); err != nil {
		return err
	}
	return v.Load(ctx)
}

func (v *ReviewsView) saveOffline(ctx context.Context, in models.ReviewInput, cause error) (*SubmitResult, error) {
	if !v.offline() || !errors.Is(cause, ErrUnreachable) {
		return nil, cause
	}
	local, err := v.Journal.Add(ctx, in)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return &SubmitResult{Local: true, ID: local.ID}, nil
}

func (v *ReviewsView) offline() bool {
	return v.Offline && v.Journal != nil
}

func (v *ReviewsView) localEntries(ctx context.Context) ([]Entry, error) {
	pending, err := v.Journal.Pending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(pending))
	for _, p := range pending {
		out = append(out, Entry{
			ID:        p.ID,
			Name:      p.Name,
			Rating:    p.Rating,
			Comment:   p.Comment,
			Timestamp: p.CreatedAt,
			Local:     true,
		})
	}
	return out, nil
}
