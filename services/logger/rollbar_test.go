package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), testutil.Config())

	usr := testutil.NewUser("7", user.RoleTeacher)
	logger.Warn("save failed", errors.New("boom"), map[string]interface{}{"course": "c1"}, usr)

	out := buf.String()
	assert.Contains(t, out, "[WARN] save failed")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "map[course:c1]")
	assert.NotContains(t, out, usr.Email)
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := NewRollbarLogger(log.New(&bytes.Buffer{}, "", 0), testutil.Config())
	err := errors.New("boom")

	args := logger.prepare("msg", []interface{}{err, testutil.NewUser("1"), testutil.NewUser("2")})
	assert.Equal(t, []interface{}{"msg", err}, args)
}
