package inmemdb

import (
	"sync"

	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
)

type (
	// DB keeps every table in memory. It backs the "memory" storage and the tests.
	DB struct {
		template *templateTable
		school   *schoolTables
	}

	templateTable struct {
		mutex sync.RWMutex
		table map[string]marksheet.Template
	}

	schoolTables struct {
		mutex    sync.RWMutex
		classes  map[string]school.Class
		students map[string]school.Student
		subjects map[string]school.Subject
		tests    map[string]school.Test
		marks    map[string]school.Mark
		keySets  map[string]school.KeySet
	}
)

func Open() *DB {
	return &DB{
		template: &templateTable{table: make(map[string]marksheet.Template)},
		school: &schoolTables{
			classes:  make(map[string]school.Class),
			students: make(map[string]school.Student),
			subjects: make(map[string]school.Subject),
			tests:    make(map[string]school.Test),
			marks:    make(map[string]school.Mark),
			keySets:  make(map[string]school.KeySet),
		},
	}
}
