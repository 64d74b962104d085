package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")

	NowFunc = time.Now // mockable
)

type Course struct {
	ID        string    `json:"id" db:"id"`
	TeacherID string    `json:"teacher_id" db:"teacher_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	Title     string `json:"title" validate:"required,max=255"`
}

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// GetCourse returns ErrNotFound when no course has the given ID.
		GetCourse(ctx context.Context, id string) (Course, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := NowFunc().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		TeacherID: nc.TeacherID,
		Title:     core.CleanString(nc.Title),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// GetOwned returns the course if usr may author it: its teacher, or any admin.
// Courses owned by someone else are reported as ErrNotFound.
func (svc *Service) GetOwned(ctx context.Context, id string, usr user.User) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if c.TeacherID != usr.ID && !usr.IsAdmin() {
		return Course{}, ErrNotFound
	}
	return c, nil
}
