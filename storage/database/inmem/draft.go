package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/draft"
)

type draftRepository struct {
	db *draftTable
}

var _ draft.Repository = (*draftRepository)(nil)

func NewDraftRepository(db *DB) draft.Repository {
	return &draftRepository{db: db.draft}
}

func (repo *draftRepository) CreateDraft(_ context.Context, d draft.Draft) (draft.Draft, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d.ID = uuid.NewString()
	d.Data = d.Data.Clone()
	repo.db.rows = append(repo.db.rows, &d)
	return d, nil
}

// GetLatestDraft returns the draft with the greatest SavedAt; ties go to the last inserted.
func (repo *draftRepository) GetLatestDraft(_ context.Context, courseID string) (draft.Draft, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var latest *draft.Draft
	for _, d := range repo.db.rows {
		if d.CourseID != courseID {
			continue
		}
		if latest == nil || !d.SavedAt.Before(latest.SavedAt) {
			latest = d
		}
	}
	if latest == nil {
		return draft.Draft{}, draft.ErrNotFound
	}
	d := *latest
	d.Data = d.Data.Clone()
	return d, nil
}

func (repo *draftRepository) DeleteDraftsExceptLatest(_ context.Context, courseID string, keep int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// most recent first, ties go to the last inserted
	drafts := make([]*draft.Draft, 0)
	for i := len(repo.db.rows) - 1; i >= 0; i-- {
		if d := repo.db.rows[i]; d.CourseID == courseID {
			drafts = append(drafts, d)
		}
	}
	sort.SliceStable(drafts, func(i, j int) bool { return drafts[i].SavedAt.After(drafts[j].SavedAt) })

	kept := make(map[*draft.Draft]bool, keep)
	for i := 0; i < len(drafts) && i < keep; i++ {
		kept[drafts[i]] = true
	}

	return repo.deleteWhere(func(d *draft.Draft) bool {
		return d.CourseID == courseID && !kept[d]
	}), nil
}

func (repo *draftRepository) DeleteDraftsOlderThan(_ context.Context, before time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	return repo.deleteWhere(func(d *draft.Draft) bool {
		return d.SavedAt.Before(before)
	}), nil
}

// deleteWhere must be called with the table locked.
func (repo *draftRepository) deleteWhere(match func(d *draft.Draft) bool) int {
	rows := repo.db.rows[:0]
	deleted := 0
	for _, d := range repo.db.rows {
		if match(d) {
			deleted++
			continue
		}
		rows = append(rows, d)
	}
	for i := len(rows); i < len(repo.db.rows); i++ {
		repo.db.rows[i] = nil
	}
	repo.db.rows = rows
	return deleted
}
