package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

func TestService_Create(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	course.NowFunc = func() time.Time { return now }
	defer func() { course.NowFunc = time.Now }()

	svc := course.NewService(inmemdb.NewCourseRepository(inmemdb.Open()))
	c, err := svc.Create(context.Background(), course.NewCourse{TeacherID: "1", Title: "  Go 101 "})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Go 101", c.Title)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, now, c.UpdatedAt)
}

func TestService_GetOwned(t *testing.T) {
	repo := inmemdb.NewCourseRepository(inmemdb.Open())
	svc := course.NewService(repo)
	crs := testutil.CreateCourse(t, repo, "1", "Go 101")

	tests := []struct {
		name    string
		id      string
		usr     user.User
		wantErr error
	}{
		{name: "owner", id: crs.ID, usr: testutil.NewUser("1", user.RoleTeacher)},
		{name: "admin", id: crs.ID, usr: testutil.NewUser("9", user.RoleAdmin)},
		{name: "other teacher", id: crs.ID, usr: testutil.NewUser("2", user.RoleTeacher), wantErr: course.ErrNotFound},
		{name: "unknown course", id: "nope", usr: testutil.NewUser("1", user.RoleTeacher), wantErr: course.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetOwned(context.Background(), tt.id, tt.usr)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, crs, got)
		})
	}
}
