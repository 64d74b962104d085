package draft_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/draft"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

func newService(t *testing.T) *draft.Service {
	t.Helper()
	return draft.NewService(inmemdb.NewDraftRepository(inmemdb.Open()), testutil.Config())
}

func freezeTime(t *testing.T, now time.Time) func(d time.Duration) {
	t.Helper()
	draft.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { draft.NowFunc = time.Now })
	return func(d time.Duration) {
		now = now.Add(d)
	}
}

func TestNewDraft_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	draft.InitValidators(validate, translator)

	tests := []struct {
		name    string
		nd      draft.NewDraft
		wantErr map[string]string
	}{
		{
			name: "valid auto",
			nd:   draft.NewDraft{Data: draft.Payload{"title": "Go"}, Type: draft.TypeAuto},
		},
		{
			name: "valid manual with empty data",
			nd:   draft.NewDraft{Data: draft.Payload{}, Type: draft.TypeManual},
		},
		{
			name:    "missing fields",
			nd:      draft.NewDraft{},
			wantErr: map[string]string{"draft_data": "this field is required", "draft_type": "this field is required"},
		},
		{
			name:    "unknown type",
			nd:      draft.NewDraft{Data: draft.Payload{}, Type: "periodic"},
			wantErr: map[string]string{"draft_type": "draft type must be one of: auto, manual"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nd.Validate(validate)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.IsType(t, validator.ValidationErrors{}, err)
			got := make(map[string]string)
			for _, fe := range err.(validator.ValidationErrors) {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.wantErr, got)
		})
	}
}

func TestService_Save(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	t.Run("saves", func(t *testing.T) {
		svc := newService(t)
		res, err := svc.Save(ctx, "c1", "1", draft.NewDraft{Data: draft.Payload{"title": "Go"}, Type: draft.TypeManual})
		require.NoError(t, err)
		assert.NotEmpty(t, res.ID)
		assert.Equal(t, now, res.SavedAt)

		latest, err := svc.Latest(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, latest.Exists())
		assert.Equal(t, draft.Payload{"title": "Go"}, latest.Draft)
		assert.Equal(t, "manual", latest.DraftType.String)
		assert.Equal(t, now, latest.SavedAt.Time)
	})

	t.Run("too large", func(t *testing.T) {
		svc := newService(t)
		big := draft.Payload{"blob": strings.Repeat("x", 2<<10)}
		_, err := svc.Save(ctx, "c1", "1", draft.NewDraft{Data: big, Type: draft.TypeAuto})
		require.Error(t, err)
		require.True(t, core.IsValidationError(err))
		assert.Contains(t, err.(*core.ValidationError).FieldErrors()["draft_data"], "too large")

		latest, err := svc.Latest(ctx, "c1")
		require.NoError(t, err)
		assert.False(t, latest.Exists())
	})
}

func TestService_Latest_none(t *testing.T) {
	latest, err := newService(t).Latest(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, latest.Exists())
	assert.False(t, latest.DraftType.Valid)
	assert.False(t, latest.SavedAt.Valid)
}

func TestService_Cleanup(t *testing.T) {
	ctx := context.Background()
	advance := freezeTime(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := newService(t) // keeps 2

	var last draft.SaveResult
	for i := 0; i < 4; i++ {
		var err error
		last, err = svc.Save(ctx, "c1", "1", draft.NewDraft{Data: draft.Payload{"i": i}, Type: draft.TypeAuto})
		require.NoError(t, err)
		advance(time.Second)
	}

	res, err := svc.Cleanup(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)

	res, err = svc.Cleanup(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, res.Deleted)

	latest, err := svc.Latest(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, last.SavedAt, latest.SavedAt.Time)
}

func TestService_Purge(t *testing.T) {
	ctx := context.Background()
	advance := freezeTime(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	svc := newService(t) // purges after 24h by default

	nd := draft.NewDraft{Data: draft.Payload{}, Type: draft.TypeAuto}
	_, err := svc.Save(ctx, "old", "1", nd)
	require.NoError(t, err)
	advance(12 * time.Hour)
	_, err = svc.Save(ctx, "recent", "1", nd)
	require.NoError(t, err)
	advance(13 * time.Hour)

	res, err := svc.Purge(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	res, err = svc.Purge(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
}
