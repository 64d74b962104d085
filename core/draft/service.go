package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound = errors.New("draft not found")

	errPayloadTooLarge = "draft is too large (max %d bytes)"

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateDraft(ctx context.Context, d Draft) (Draft, error)
		// GetLatestDraft returns ErrNotFound when the course has no draft.
		GetLatestDraft(ctx context.Context, courseID string) (Draft, error)
		// DeleteDraftsExceptLatest keeps the `keep` most recent drafts of the course.
		DeleteDraftsExceptLatest(ctx context.Context, courseID string, keep int) (int, error)
		DeleteDraftsOlderThan(ctx context.Context, before time.Time) (int, error)
	}

	Service struct {
		repo Repository
		conf core.DraftsConfig
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf.Drafts}
}

// Save stores a new draft of the course. nd must have been validated.
func (svc *Service) Save(ctx context.Context, courseID, authorID string, nd NewDraft) (SaveResult, error) {
	if max := svc.conf.MaxPayloadBytes; max > 0 {
		raw, err := json.Marshal(nd.Data)
		if err != nil {
			return SaveResult{}, core.NewFieldError("draft_data", err)
		}
		if len(raw) > max {
			return SaveResult{}, core.NewFieldError("draft_data", fmt.Errorf(errPayloadTooLarge, max))
		}
	}

	d, err := svc.repo.CreateDraft(ctx, Draft{
		CourseID:  courseID,
		Data:      nd.Data,
		Type:      nd.Type,
		CreatedBy: authorID,
		SavedAt:   NowFunc().UTC(),
	})
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{ID: d.ID, SavedAt: d.SavedAt}, nil
}

// Latest returns the most recent draft of the course, or an empty Latest if there is none.
func (svc *Service) Latest(ctx context.Context, courseID string) (Latest, error) {
	d, err := svc.repo.GetLatestDraft(ctx, courseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Latest{}, nil
		}
		return Latest{}, err
	}
	return Latest{
		Draft:     d.Data,
		DraftType: null.StringFrom(d.Type.String()),
		SavedAt:   null.TimeFrom(d.SavedAt),
	}, nil
}

// Cleanup deletes the old drafts of the course, keeping the most recent ones.
func (svc *Service) Cleanup(ctx context.Context, courseID string) (CleanupResult, error) {
	keep := svc.conf.KeepLatest
	if keep < 1 {
		keep = 1
	}
	n, err := svc.repo.DeleteDraftsExceptLatest(ctx, courseID, keep)
	if err != nil {
		return CleanupResult{}, err
	}
	return CleanupResult{Deleted: n}, nil
}

// Purge deletes the drafts of all courses saved more than maxAge ago.
func (svc *Service) Purge(ctx context.Context, maxAge time.Duration) (CleanupResult, error) {
	if maxAge <= 0 {
		maxAge = svc.conf.PurgeAfter
	}
	n, err := svc.repo.DeleteDraftsOlderThan(ctx, NowFunc().UTC().Add(-maxAge))
	if err != nil {
		return CleanupResult{}, err
	}
	return CleanupResult{Deleted: n}, nil
}
