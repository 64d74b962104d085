package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

// Logger is a core.Logger that records messages and forwards them to t.Log.
type Logger struct {
	t    testing.TB
	mu   sync.Mutex
	msgs []LogEntry
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t testing.TB) *Logger {
	return &Logger{t: t}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.msgs = append(l.msgs, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
	l.t.Logf("%s: %s %v", strings.ToUpper(level), msg, args)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("fatal", msg, args)
	l.t.Fatalf("fatal: %s", msg)
}

// Entries returns the recorded entries of the given level ("" for all).
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]LogEntry, 0, len(l.msgs))
	for _, e := range l.msgs {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

// Config returns a test configuration that does not depend on the environment.
func Config() *core.Config {
	return &core.Config{
		Env:       "TEST",
		Build:     "test",
		TestMode:  true,
		AppName:   "Academia",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Database: core.DatabaseConfig{InMemory: true},
		Drafts: core.DraftsConfig{
			KeepLatest:      2,
			MaxPayloadBytes: 1 << 10,
			PurgeAfter:      24 * time.Hour,
		},
	}
}

func NewUser(id string, roles ...string) user.User {
	return user.User{
		ID:       id,
		Username: "user" + id,
		Email:    fmt.Sprintf("user%s@test.cd", id),
		Roles:    roles,
	}
}

func CreateCourse(t *testing.T, repo course.Repository, teacherID, title string, createdAt ...time.Time) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := repo.CreateCourse(context.Background(), course.Course{
		TeacherID: teacherID,
		Title:     title,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}
