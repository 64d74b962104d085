package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/draft"
)

type (
	DB struct {
		course *courseTable
		draft  *draftTable
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	draftTable struct {
		sync.RWMutex
		rows []*draft.Draft // ordered by insertion
	}
)

func Open() *DB {
	return &DB{
		course: &courseTable{table: make(map[string]*course.Course)},
		draft:  &draftTable{},
	}
}
