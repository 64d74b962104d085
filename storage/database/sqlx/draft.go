package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/draft"
)

// draftRow maps a course_draft row.
type draftRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	Data      []byte    `db:"draft_data"`
	Type      string    `db:"draft_type"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

func (r draftRow) toDraft() (draft.Draft, error) {
	var data draft.Payload
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return draft.Draft{}, errors.Wrap(err, "decoding draft_data")
	}
	return draft.Draft{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Data:      data,
		Type:      draft.Type(r.Type),
		CreatedBy: r.CreatedBy,
		SavedAt:   r.CreatedAt.UTC(),
	}, nil
}

type draftRepository struct {
	db core.DBExecutor
}

var _ draft.Repository = (*draftRepository)(nil)

func NewDraftRepository(db core.DBExecutor) draft.Repository {
	return &draftRepository{db: db}
}

func (repo *draftRepository) CreateDraft(ctx context.Context, d draft.Draft) (draft.Draft, error) {
	data, err := json.Marshal(d.Data)
	if err != nil {
		return draft.Draft{}, errors.Wrap(err, "encoding draft_data")
	}
	d.ID = uuid.NewString()

	const q = `
		INSERT INTO course_draft (id, course_id, draft_data, draft_type, created_by, created_at)
		VALUES (:id, :course_id, :draft_data, :draft_type, :created_by, :created_at)`
	row := draftRow{
		ID:        d.ID,
		CourseID:  d.CourseID,
		Data:      data,
		Type:      d.Type.String(),
		CreatedBy: d.CreatedBy,
		CreatedAt: d.SavedAt,
	}
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return draft.Draft{}, errors.Wrap(err, "inserting draft")
	}
	return d, nil
}

func (repo *draftRepository) GetLatestDraft(ctx context.Context, courseID string) (draft.Draft, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return draft.Draft{}, draft.ErrNotFound
	}

	var row draftRow
	const q = `
		SELECT id, course_id, draft_data, draft_type, created_by, created_at
		FROM course_draft
		WHERE course_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	if err := repo.db.GetContext(ctx, &row, q, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return draft.Draft{}, draft.ErrNotFound
		}
		return draft.Draft{}, errors.Wrap(err, "selecting latest draft")
	}
	return row.toDraft()
}

func (repo *draftRepository) DeleteDraftsExceptLatest(ctx context.Context, courseID string, keep int) (int, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return 0, nil
	}

	const q = `
		DELETE FROM course_draft
		WHERE course_id = $1
		  AND id NOT IN (
			SELECT id FROM course_draft
			WHERE course_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		  )`
	res, err := repo.db.ExecContext(ctx, q, courseID, keep)
	if err != nil {
		return 0, errors.Wrap(err, "deleting old drafts")
	}
	return rowsAffected(res)
}

func (repo *draftRepository) DeleteDraftsOlderThan(ctx context.Context, before time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course_draft WHERE created_at < $1`, before)
	if err != nil {
		return 0, errors.Wrap(err, "purging drafts")
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted drafts")
	}
	return int(n), nil
}
