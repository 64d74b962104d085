package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/autosave"
	"github.com/trezcool/academia/core/draft"
)

const finalSaveTimeout = 30 * time.Second

// remote is the draft API the sync tool saves to.
type remote interface {
	LatestDraft(ctx context.Context, courseID string) (draft.Latest, error)
	SaveFunc(courseID string) autosave.SaveFunc
}

// syncer keeps a local JSON draft file in sync with the course draft on the server.
type syncer struct {
	courseID string
	path     string
	remote   remote
	sched    *autosave.Scheduler
	logger   core.Logger

	mu       sync.Mutex
	raw      []byte // last file content
	snapshot draft.Payload
}

func newSyncer(courseID, path string, rmt remote, sched *autosave.Scheduler, logger core.Logger) (*syncer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolving draft file path")
	}
	return &syncer{
		courseID: courseID,
		path:     abs,
		remote:   rmt,
		sched:    sched,
		logger:   logger,
	}, nil
}

func (s *syncer) session() autosave.SessionID {
	return autosave.SessionID(s.courseID)
}

// provide returns the last valid snapshot of the draft file.
func (s *syncer) provide() draft.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// load reads the draft file, or creates it from the latest server draft when it does not exist.
func (s *syncer) load(ctx context.Context) error {
	raw, err := os.ReadFile(s.path)
	if err == nil {
		_, err = s.update(raw)
		return err
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "reading draft file")
	}

	latest, err := s.remote.LatestDraft(ctx, s.courseID)
	if err != nil {
		return errors.Wrap(err, "fetching latest draft")
	}
	data := latest.Draft
	if !latest.Exists() {
		data = draft.Payload{}
	}
	raw, err = json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	if err = os.WriteFile(s.path, raw, 0o644); err != nil {
		return errors.Wrap(err, "writing draft file")
	}
	if latest.Exists() {
		s.logger.Info(fmt.Sprintf("restored %s draft saved at %s", latest.DraftType.String, latest.SavedAt.Time.Format(time.RFC3339)))
	}
	_, err = s.update(raw)
	return err
}

// update stores raw as the new snapshot. It reports whether the content changed.
func (s *syncer) update(raw []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.raw != nil && bytes.Equal(raw, s.raw) {
		return false, nil
	}
	var data draft.Payload
	if err := json.Unmarshal(raw, &data); err != nil {
		return false, errors.Wrap(err, "decoding draft file")
	}
	if data == nil {
		data = draft.Payload{}
	}
	s.raw = raw
	s.snapshot = data
	return true, nil
}

func (s *syncer) handleWrite() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("reading draft file", err)
		return
	}
	changed, err := s.update(raw)
	if err != nil {
		// keep the last valid snapshot until the file is fixed
		s.logger.Warn("invalid draft file", err)
		return
	}
	s.sched.NotifyChange(s.session(), s.provide, nil, changed)
}

// Run syncs the draft file until ctx is done, then force-saves the last snapshot.
func (s *syncer) Run(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer func() { _ = watcher.Close() }()

	// watch the directory: editors often replace the file instead of writing it
	if err = watcher.Add(filepath.Dir(s.path)); err != nil {
		return errors.Wrap(err, "watching draft file")
	}

	unsubscribe := s.sched.OnStatusChange(func(st autosave.Status) {
		s.logger.Info(fmt.Sprintf("draft %s: %s", s.courseID, st))
	})
	defer unsubscribe()

	s.sched.Start(s.session(), s.provide, s.remote.SaveFunc(s.courseID))
	defer s.sched.Stop()
	s.logger.Info(fmt.Sprintf("syncing %s with course %s", s.path, s.courseID))

	for {
		select {
		case <-ctx.Done():
			return s.finalSave()
		case event, ok := <-watcher.Events:
			if !ok {
				return s.finalSave()
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				s.handleWrite()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return s.finalSave()
			}
			s.logger.Error("watch draft file error", err)
		}
	}
}

func (s *syncer) finalSave() error {
	ctx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
	defer cancel()

	if err := s.sched.ForceSave(ctx, s.session(), s.provide(), nil); err != nil {
		return errors.Wrap(err, "saving draft")
	}
	s.logger.Info("draft saved")
	return nil
}
