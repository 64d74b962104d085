package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/autosave"
	"github.com/trezcool/academia/core/draft"
	"github.com/trezcool/academia/tests"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

type savedDraft struct {
	data draft.Payload
	typ  draft.Type
}

type fakeRemote struct {
	latest  draft.Latest
	fetched int

	mu    sync.Mutex
	saves []savedDraft
}

func (r *fakeRemote) LatestDraft(context.Context, string) (draft.Latest, error) {
	r.fetched++
	return r.latest, nil
}

func (r *fakeRemote) SaveFunc(string) autosave.SaveFunc {
	return func(_ context.Context, p draft.Payload, t draft.Type) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.saves = append(r.saves, savedDraft{data: p, typ: t})
		return nil
	}
}

func (r *fakeRemote) savedDrafts() []savedDraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]savedDraft(nil), r.saves...)
}

func newTestSyncer(t *testing.T, path string, rmt *fakeRemote) (*syncer, *testutil.Logger) {
	logger := testutil.NewLogger(t)
	// timers never fire on their own: only the final save reaches the remote
	sched := autosave.New(autosave.DefaultConfig(), logger, autosave.WithClock(clock.NewMock()))
	s, err := newSyncer("c1", path, rmt, sched, logger)
	require.NoError(t, err)
	return s, logger
}

func TestSyncer_load(t *testing.T) {
	ctx := context.Background()

	t.Run("restores the latest draft", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "draft.json")
		rmt := &fakeRemote{latest: draft.Latest{
			Draft:     draft.Payload{"title": "Go 101"},
			DraftType: null.StringFrom("auto"),
			SavedAt:   null.TimeFrom(time.Now()),
		}}
		s, _ := newTestSyncer(t, path, rmt)

		require.NoError(t, s.load(ctx))
		assert.Equal(t, 1, rmt.fetched)
		assert.Equal(t, draft.Payload{"title": "Go 101"}, s.provide())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var onDisk map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &onDisk))
		assert.Equal(t, "Go 101", onDisk["title"])
	})

	t.Run("no draft yet", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "draft.json")
		s, _ := newTestSyncer(t, path, &fakeRemote{})

		require.NoError(t, s.load(ctx))
		assert.Equal(t, draft.Payload{}, s.provide())
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "draft.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"title": "local"}`), 0o644))
		rmt := &fakeRemote{}
		s, _ := newTestSyncer(t, path, rmt)

		require.NoError(t, s.load(ctx))
		assert.Zero(t, rmt.fetched)
		assert.Equal(t, draft.Payload{"title": "local"}, s.provide())
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "draft.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"title": `), 0o644))
		s, _ := newTestSyncer(t, path, &fakeRemote{})

		assert.Error(t, s.load(ctx))
	})
}

func TestSyncer_update(t *testing.T) {
	s, _ := newTestSyncer(t, filepath.Join(t.TempDir(), "draft.json"), &fakeRemote{})

	tests := []struct {
		name        string
		raw         string
		wantChanged bool
		wantErr     bool
		want        draft.Payload
	}{
		{name: "first content", raw: `{"v": 1}`, wantChanged: true, want: draft.Payload{"v": float64(1)}},
		{name: "same content", raw: `{"v": 1}`, want: draft.Payload{"v": float64(1)}},
		{name: "new content", raw: `{"v": 2}`, wantChanged: true, want: draft.Payload{"v": float64(2)}},
		{name: "invalid keeps snapshot", raw: `{"v": `, wantErr: true, want: draft.Payload{"v": float64(2)}},
		{name: "null", raw: `null`, wantChanged: true, want: draft.Payload{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := s.update([]byte(tt.raw))
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, s.provide())
		})
	}
}

func TestSyncer_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title": "v0"}`), 0o644))
	rmt := &fakeRemote{}
	s, logger := newTestSyncer(t, path, rmt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, s.sched.IsActive, waitFor, tick)

	// a content change counts as a substantial change
	require.NoError(t, os.WriteFile(path, []byte(`{"title": "v1"}`), 0o644))
	require.Eventually(t, func() bool { return s.sched.ChangeCount() == 1 }, waitFor, tick)
	assert.Equal(t, draft.Payload{"title": "v1"}, s.provide())

	// a broken file keeps the last valid snapshot
	warnings := len(logger.Entries("warn"))
	require.NoError(t, os.WriteFile(path, []byte(`{"title": `), 0o644))
	require.Eventually(t, func() bool { return len(logger.Entries("warn")) > warnings }, waitFor, tick)
	assert.Equal(t, draft.Payload{"title": "v1"}, s.provide())

	require.NoError(t, os.WriteFile(path, []byte(`{"title": "v2"}`), 0o644))
	require.Eventually(t, func() bool { return s.sched.ChangeCount() == 2 }, waitFor, tick)

	// stopping force-saves the last snapshot
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run() did not return")
	}

	saves := rmt.savedDrafts()
	require.Len(t, saves, 1)
	assert.Equal(t, draft.TypeManual, saves[0].typ)
	assert.Equal(t, draft.Payload{"title": "v2"}, saves[0].data)
	assert.False(t, s.sched.IsActive())
}
