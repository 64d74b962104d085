// Package autosave decides when the draft of a course editing session is persisted.
//
// Two triggers compete: a fixed-interval safety net that saves whenever at least one substantial
// change is pending, and an inactivity save that fires once edits pause (after a debounce window)
// and at least MinChanges substantial changes are pending. At most one save runs at a time.
//
// Timer callbacks run on their own goroutines: every field below is guarded by Scheduler.mu, and
// callbacks carry the session generation they were armed for so that late firings are ignored.
// Save functions and status listeners are always called without holding the lock. Status
// notifications are queued under the lock and delivered in transition order by one goroutine at a
// time, so a listener's last notification always matches Status once the scheduler is quiet.
package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/draft"
)

// ErrNotInitialized is returned by ForceSave when no session with the given ID is active.
var ErrNotInitialized = errors.New("autosave: scheduler not initialized")

const (
	DefaultFixedInterval   = 5 * time.Minute
	DefaultInactivityDelay = 30 * time.Second
	DefaultMinChanges      = 3
	DefaultDebounce        = 2 * time.Second
	DefaultSavedResetDelay = 2 * time.Second
)

type (
	// SessionID identifies an editing session, usually the course ID.
	SessionID string

	// DataProvider returns the current draft. It is called at save time and its result is never kept.
	DataProvider func() draft.Payload

	// SaveFunc persists a draft; it must return an error on any failure.
	SaveFunc func(ctx context.Context, p draft.Payload, t draft.Type) error

	// Option configures a Scheduler built by New.
	Option func(*Scheduler)
)

// WithClock sets the clock used for timers (defaults to the wall clock).
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() core.AutosaveConfig {
	return core.AutosaveConfig{
		FixedInterval:   DefaultFixedInterval,
		InactivityDelay: DefaultInactivityDelay,
		MinChanges:      DefaultMinChanges,
		Debounce:        DefaultDebounce,
		SavedResetDelay: DefaultSavedResetDelay,
	}
}

func withDefaults(conf core.AutosaveConfig) core.AutosaveConfig {
	if conf.FixedInterval <= 0 {
		conf.FixedInterval = DefaultFixedInterval
	}
	if conf.InactivityDelay <= 0 {
		conf.InactivityDelay = DefaultInactivityDelay
	}
	if conf.MinChanges <= 0 {
		conf.MinChanges = DefaultMinChanges
	}
	if conf.Debounce <= 0 {
		conf.Debounce = DefaultDebounce
	}
	if conf.SavedResetDelay <= 0 {
		conf.SavedResetDelay = DefaultSavedResetDelay
	}
	return conf
}

// Scheduler runs the auto-save timers of one editing session at a time.
type Scheduler struct {
	conf   core.AutosaveConfig
	logger core.Logger
	clock  clock.Clock

	mu           sync.Mutex
	active       bool
	generation   uint64
	sessionID    SessionID
	provider     DataProvider
	save         SaveFunc
	changeCount  int
	lastActivity time.Time

	status    Status
	statusSeq uint64

	fixedTimer      *clock.Timer
	inactivityTimer *clock.Timer
	debounceTimer   *clock.Timer
	resetTimer      *clock.Timer // saved -> idle

	saving   bool
	saveDone chan struct{} // closed once the in-flight save returns

	listeners      []listenerEntry
	nextListenerID int

	pending    []statusEvent // transitions not delivered to the listeners yet
	delivering bool
}

type statusEvent struct {
	status    Status
	listeners []StatusListener
}

// New returns an inactive Scheduler; zero values in conf fall back to the defaults.
func New(conf core.AutosaveConfig, logger core.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		conf:   withDefaults(conf),
		logger: logger,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins a session, stopping the previous one if any.
func (s *Scheduler) Start(id SessionID, provider DataProvider, save SaveFunc) {
	s.mu.Lock()
	var notifyStop func()
	if s.active {
		notifyStop = s.stopLocked()
	}
	s.generation++
	s.active = true
	s.sessionID = id
	s.provider = provider
	s.save = save
	s.changeCount = 0
	s.lastActivity = s.clock.Now()
	s.armFixedLocked(s.generation)
	notify := s.setStatusLocked(StatusIdle)
	s.mu.Unlock()

	if notifyStop != nil {
		notifyStop()
	}
	notify()
	s.logger.Debug("autosave: session started", map[string]interface{}{"session": string(id)})
}

// Stop cancels all timers and resets the scheduler. A save already in flight is not aborted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	notify := s.stopLocked()
	s.mu.Unlock()
	notify()
}

func (s *Scheduler) stopLocked() func() {
	stopTimer(&s.fixedTimer)
	stopTimer(&s.inactivityTimer)
	stopTimer(&s.debounceTimer)
	stopTimer(&s.resetTimer)
	if s.active {
		s.generation++
	}
	s.active = false
	s.provider = nil
	s.save = nil
	s.changeCount = 0
	return s.setStatusLocked(StatusIdle)
}

// NotifyChange records an edit of the session. Only substantial changes count towards the
// inactivity threshold. Non-nil provider & save replace the ones given to Start.
func (s *Scheduler) NotifyChange(id SessionID, provider DataProvider, save SaveFunc, substantial bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || id != s.sessionID {
		return
	}
	if provider != nil {
		s.provider = provider
	}
	if save != nil {
		s.save = save
	}
	if substantial {
		s.changeCount++
	}
	s.lastActivity = s.clock.Now()

	gen := s.generation
	stopTimer(&s.debounceTimer)
	s.debounceTimer = s.clock.AfterFunc(s.conf.Debounce, func() { s.onDebounceSettled(gen) })
}

// ForceSave saves p right away, whatever the pending changes. It waits for a save already in
// flight to finish first. The save error, if any, is returned after the status is set to error.
func (s *Scheduler) ForceSave(ctx context.Context, id SessionID, p draft.Payload, save SaveFunc) error {
	s.mu.Lock()
	for {
		if !s.active || id != s.sessionID {
			s.mu.Unlock()
			return ErrNotInitialized
		}
		if !s.saving {
			break
		}
		done := s.saveDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
	}

	if save == nil {
		save = s.save
	}
	if save == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	gen := s.generation
	s.beginSaveLocked()
	notify := s.setStatusLocked(StatusSaving)
	s.mu.Unlock()
	notify()

	err := callSave(ctx, save, func() draft.Payload { return p }, draft.TypeManual)

	s.mu.Lock()
	s.endSaveLocked()
	notify = func() {}
	if gen == s.generation {
		if err != nil {
			notify = s.setStatusLocked(StatusError)
		} else {
			s.changeCount = 0
			notify = s.setStatusLocked(StatusSaved)
		}
	}
	s.mu.Unlock()
	notify()

	if err != nil {
		s.logger.Error("autosave: manual save failed", err, map[string]interface{}{"session": string(id)})
		return err
	}
	return nil
}

// Status returns the current status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OnStatusChange registers fn to be called on every status transition, in order. fn may run on
// another goroutine than the one causing the transition. The returned function unregisters it.
func (s *Scheduler) OnStatusChange(fn StatusListener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					break
				}
			}
		})
	}
}

// IsActive reports whether a session is running.
func (s *Scheduler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ChangeCount returns the number of substantial changes not saved yet.
func (s *Scheduler) ChangeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeCount
}

// LastActivity returns the time of the last change notified, or of Start.
func (s *Scheduler) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Timers

func (s *Scheduler) armFixedLocked(gen uint64) {
	s.fixedTimer = s.clock.AfterFunc(s.conf.FixedInterval, func() { s.onFixedInterval(gen) })
}

func (s *Scheduler) onFixedInterval(gen uint64) {
	s.mu.Lock()
	if !s.isCurrentLocked(gen) {
		s.mu.Unlock()
		return
	}
	s.armFixedLocked(gen)
	if s.changeCount == 0 {
		s.mu.Unlock()
		return
	}
	s.autoSaveLocked(gen, "fixed interval")
}

func (s *Scheduler) onDebounceSettled(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrentLocked(gen) {
		return
	}
	s.debounceTimer = nil
	stopTimer(&s.inactivityTimer)
	s.inactivityTimer = s.clock.AfterFunc(s.conf.InactivityDelay, func() { s.onInactivity(gen) })
}

func (s *Scheduler) onInactivity(gen uint64) {
	s.mu.Lock()
	if !s.isCurrentLocked(gen) {
		s.mu.Unlock()
		return
	}
	s.inactivityTimer = nil
	if s.changeCount < s.conf.MinChanges {
		s.mu.Unlock()
		return
	}
	s.autoSaveLocked(gen, "inactivity")
}

func (s *Scheduler) onSavedReset(gen, seq uint64) {
	s.mu.Lock()
	if !s.isCurrentLocked(gen) || seq != s.statusSeq || s.status != StatusSaved {
		s.mu.Unlock()
		return
	}
	s.resetTimer = nil
	notify := s.setStatusLocked(StatusIdle)
	s.mu.Unlock()
	notify()
}

func (s *Scheduler) isCurrentLocked(gen uint64) bool {
	return s.active && s.generation == gen
}

// Saving

// autoSaveLocked runs a background save. It must be called with s.mu held and releases it.
// Failures are logged, never returned: the next trigger will try again once changes pile up.
func (s *Scheduler) autoSaveLocked(gen uint64, trigger string) {
	id := s.sessionID
	if s.saving {
		s.mu.Unlock()
		s.logger.Debug("autosave: save already in flight, skipping", map[string]interface{}{
			"session": string(id), "trigger": trigger,
		})
		return
	}
	provider, save := s.provider, s.save
	if provider == nil || save == nil {
		s.mu.Unlock()
		return
	}
	// changes made while saving belong to the next save
	s.changeCount = 0
	s.beginSaveLocked()
	notify := s.setStatusLocked(StatusSaving)
	s.mu.Unlock()
	notify()

	err := callSave(context.Background(), save, provider, draft.TypeAuto)

	s.mu.Lock()
	s.endSaveLocked()
	notify = func() {}
	if s.isCurrentLocked(gen) {
		if err != nil {
			notify = s.setStatusLocked(StatusError)
		} else {
			notify = s.setStatusLocked(StatusSaved)
			seq := s.statusSeq
			s.resetTimer = s.clock.AfterFunc(s.conf.SavedResetDelay, func() { s.onSavedReset(gen, seq) })
		}
	}
	s.mu.Unlock()
	notify()

	if err != nil {
		s.logger.Error(fmt.Sprintf("autosave: %s save failed", trigger), err, map[string]interface{}{
			"session": string(id),
		})
	}
}

func (s *Scheduler) beginSaveLocked() {
	s.saving = true
	s.saveDone = make(chan struct{})
}

func (s *Scheduler) endSaveLocked() {
	s.saving = false
	close(s.saveDone)
}

func callSave(ctx context.Context, save SaveFunc, payload func() draft.Payload, t draft.Type) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("save panicked: %v", r)
		}
	}()
	return save(ctx, payload(), t)
}

// Status

// setStatusLocked records a transition and queues its notification. The returned function
// delivers the queue and must be called once s.mu is released.
func (s *Scheduler) setStatusLocked(st Status) func() {
	if s.status == st {
		return func() {}
	}
	s.status = st
	s.statusSeq++
	stopTimer(&s.resetTimer)

	listeners := make([]StatusListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l.fn)
	}
	s.pending = append(s.pending, statusEvent{status: st, listeners: listeners})
	return s.deliver
}

// deliver notifies the queued transitions in order. When another goroutine is already
// delivering, it returns at once: that goroutine drains what was queued since.
func (s *Scheduler) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending[0] = statusEvent{}
		s.pending = s.pending[1:]
		s.mu.Unlock()
		for _, fn := range ev.listeners {
			s.notifyListener(fn, ev.status)
		}
		s.mu.Lock()
	}
	s.pending = nil
	s.delivering = false
	s.mu.Unlock()
}

func (s *Scheduler) notifyListener(fn StatusListener, st Status) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("autosave: status listener panicked", errors.Errorf("%v", r))
		}
	}()
	fn(st)
}

func stopTimer(t **clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
