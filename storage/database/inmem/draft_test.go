package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/draft"
)

func seedDrafts(t *testing.T, repo draft.Repository, courseID string, n int, from time.Time) []draft.Draft {
	drafts := make([]draft.Draft, 0, n)
	for i := 0; i < n; i++ {
		d, err := repo.CreateDraft(context.Background(), draft.Draft{
			CourseID:  courseID,
			Data:      draft.Payload{"version": i},
			Type:      draft.TypeAuto,
			CreatedBy: "1",
			SavedAt:   from.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		drafts = append(drafts, d)
	}
	return drafts
}

func TestDraftRepository_GetLatestDraft(t *testing.T) {
	ctx := context.Background()
	repo := NewDraftRepository(Open())
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.GetLatestDraft(ctx, "c1")
	assert.Equal(t, draft.ErrNotFound, err)

	drafts := seedDrafts(t, repo, "c1", 3, start)
	seedDrafts(t, repo, "c2", 1, start.Add(time.Hour))

	got, err := repo.GetLatestDraft(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, drafts[2].ID, got.ID)
	assert.Equal(t, draft.Payload{"version": 2}, got.Data)

	// same timestamp: last inserted wins
	tie, err := repo.CreateDraft(ctx, draft.Draft{CourseID: "c1", Data: draft.Payload{"v": "tie"}, Type: draft.TypeManual, SavedAt: drafts[2].SavedAt})
	require.NoError(t, err)
	got, err = repo.GetLatestDraft(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, tie.ID, got.ID)
	assert.Equal(t, draft.TypeManual, got.Type)
}

func TestDraftRepository_storesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewDraftRepository(Open())

	data := draft.Payload{"title": "Go 101"}
	_, err := repo.CreateDraft(ctx, draft.Draft{CourseID: "c1", Data: data, Type: draft.TypeAuto, SavedAt: time.Now()})
	require.NoError(t, err)
	data["title"] = "changed"

	got, err := repo.GetLatestDraft(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Go 101", got.Data["title"])
}

func TestDraftRepository_DeleteDraftsExceptLatest(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		seeded      int
		keep        int
		wantDeleted int
	}{
		{name: "nothing to delete", seeded: 2, keep: 5, wantDeleted: 0},
		{name: "exactly keep", seeded: 5, keep: 5, wantDeleted: 0},
		{name: "keeps latest", seeded: 7, keep: 5, wantDeleted: 2},
		{name: "keep one", seeded: 3, keep: 1, wantDeleted: 2},
		{name: "no drafts", seeded: 0, keep: 1, wantDeleted: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewDraftRepository(Open())
			drafts := seedDrafts(t, repo, "c1", tt.seeded, start)
			other := seedDrafts(t, repo, "c2", 2, start)

			deleted, err := repo.DeleteDraftsExceptLatest(ctx, "c1", tt.keep)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDeleted, deleted)

			if tt.seeded > 0 {
				latest, err := repo.GetLatestDraft(ctx, "c1")
				require.NoError(t, err)
				assert.Equal(t, drafts[tt.seeded-1].ID, latest.ID)
			}

			// other courses are untouched
			deleted, err = repo.DeleteDraftsExceptLatest(ctx, "c2", 2)
			require.NoError(t, err)
			assert.Zero(t, deleted)
			latest, err := repo.GetLatestDraft(ctx, "c2")
			require.NoError(t, err)
			assert.Equal(t, other[1].ID, latest.ID)
		})
	}
}

func TestDraftRepository_DeleteDraftsOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewDraftRepository(Open())
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// c1: 00:00 to 00:03, c2: 00:00, c3: 01:00
	seedDrafts(t, repo, "c1", 4, start)
	c2 := seedDrafts(t, repo, "c2", 1, start)
	recent := seedDrafts(t, repo, "c3", 1, start.Add(time.Hour))

	deleted, err := repo.DeleteDraftsOlderThan(ctx, start.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, deleted) // 2 of c1 + c2

	_, err = repo.GetLatestDraft(ctx, c2[0].CourseID)
	assert.Equal(t, draft.ErrNotFound, err)

	got, err := repo.GetLatestDraft(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, recent[0].ID, got.ID)
}
