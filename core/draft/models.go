package draft

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
)

// Type tells how a draft was saved.
type Type string

const (
	TypeAuto   Type = "auto"
	TypeManual Type = "manual"
)

func (t Type) Valid() bool {
	return t == TypeAuto || t == TypeManual
}

func (t Type) String() string { return string(t) }

// Payload is the editor state of a course (metadata, builder tree, last_modified...).
// It is stored and returned verbatim.
type Payload map[string]interface{}

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	c := make(Payload, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

type Draft struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Data      Payload   `json:"draft_data"`
	Type      Type      `json:"draft_type"`
	CreatedBy string    `json:"created_by"`
	SavedAt   time.Time `json:"saved_at"` // UTC
}

// NewDraft contains information needed to save a draft.
type NewDraft struct {
	Data Payload `json:"draft_data" validate:"required"`
	Type Type    `json:"draft_type" validate:"required,drafttype"`
}

func (nd *NewDraft) Validate(validate *validator.Validate) error {
	return validate.Struct(nd)
}

// SaveResult acknowledges a saved draft.
type SaveResult struct {
	ID      string    `json:"id"`
	SavedAt time.Time `json:"saved_at"`
}

// Latest is the most recent draft of a course. All fields are null when the course has no draft.
type Latest struct {
	Draft     Payload     `json:"draft"`
	DraftType null.String `json:"draft_type"`
	SavedAt   null.Time   `json:"saved_at"`
}

func (l Latest) Exists() bool { return l.Draft != nil }

type CleanupResult struct {
	Deleted int `json:"deleted"`
}
