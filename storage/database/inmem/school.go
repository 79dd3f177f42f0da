package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/school"
)

type schoolRepository struct {
	db *schoolTables
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db.school}
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (repo *schoolRepository) QueryClasses(_ context.Context, _ ...core.DBExecutor) ([]school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		if classes[i].Section != classes[j].Section {
			return classes[i].Section < classes[j].Section
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string, _ ...core.DBExecutor) (school.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return c, nil
	}
	return school.Class{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryStudents(_ context.Context, filter school.StudentFilter, _ ...core.DBExecutor) ([]school.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	students := make([]school.Student, 0)
	for _, s := range repo.db.students {
		if filter.ClassID != "" && s.ClassID != filter.ClassID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.RollNumber), search) {
			continue
		}
		s.Fields = copyStringMap(s.Fields)
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		if a.RollNumber != b.RollNumber {
			return a.RollNumber < b.RollNumber
		}
		return a.ID < b.ID
	})
	return students, nil
}

func (repo *schoolRepository) GetStudent(_ context.Context, id string, _ ...core.DBExecutor) (school.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		s.Fields = copyStringMap(s.Fields)
		return s, nil
	}
	return school.Student{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySubjects(_ context.Context, classID string, _ ...core.DBExecutor) ([]school.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]school.Subject, 0)
	for _, s := range repo.db.subjects {
		if classID == "" || s.ClassID == classID {
			subjects = append(subjects, s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Name != subjects[j].Name {
			return subjects[i].Name < subjects[j].Name
		}
		return subjects[i].ID < subjects[j].ID
	})
	return subjects, nil
}

func (repo *schoolRepository) QueryTests(_ context.Context, classID string, _ ...core.DBExecutor) ([]school.Test, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tests := make([]school.Test, 0)
	for _, t := range repo.db.tests {
		if classID == "" || t.ClassID == classID {
			tests = append(tests, t)
		}
	}
	// undated tests first, like NULLS FIRST
	sort.Slice(tests, func(i, j int) bool {
		a, b := tests[i].Date, tests[j].Date
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return tests[i].ID < tests[j].ID
	})
	return tests, nil
}

func (repo *schoolRepository) GetTest(_ context.Context, id string, _ ...core.DBExecutor) (school.Test, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tests[id]; ok {
		return t, nil
	}
	return school.Test{}, school.ErrNotFound
}

func (repo *schoolRepository) QueryMarks(_ context.Context, filter school.MarkFilter, _ ...core.DBExecutor) ([]school.Mark, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	marks := make([]school.Mark, 0)
	for _, m := range repo.db.marks {
		if (filter.StudentID != "" && m.StudentID != filter.StudentID) ||
			(filter.SubjectID != "" && m.SubjectID != filter.SubjectID) ||
			(filter.TestID != "" && m.TestID != filter.TestID) {
			continue
		}
		if m.Marks != nil {
			v := *m.Marks
			m.Marks = &v
		}
		marks = append(marks, m)
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].ID < marks[j].ID })
	return marks, nil
}

func (repo *schoolRepository) QueryKeySets(_ context.Context, _ ...core.DBExecutor) ([]school.KeySet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sets := make([]school.KeySet, 0, len(repo.db.keySets))
	for _, ks := range repo.db.keySets {
		ks.Mappings = copyStringMap(ks.Mappings)
		sets = append(sets, ks)
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Name != sets[j].Name {
			return sets[i].Name < sets[j].Name
		}
		return sets[i].ID < sets[j].ID
	})
	return sets, nil
}

func (repo *schoolRepository) GetKeySet(_ context.Context, id string, _ ...core.DBExecutor) (school.KeySet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ks, ok := repo.db.keySets[id]; ok {
		ks.Mappings = copyStringMap(ks.Mappings)
		return ks, nil
	}
	return school.KeySet{}, school.ErrNotFound
}

func (repo *schoolRepository) Import(_ context.Context, data school.Dataset, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, c := range data.Classes {
		repo.db.classes[c.ID] = c
	}
	for _, s := range data.Students {
		s.Fields = copyStringMap(s.Fields)
		repo.db.students[s.ID] = s
	}
	for _, s := range data.Subjects {
		repo.db.subjects[s.ID] = s
	}
	for _, t := range data.Tests {
		repo.db.tests[t.ID] = t
	}
	for _, m := range data.Marks {
		if m.Marks != nil {
			v := *m.Marks
			m.Marks = &v
		}
		repo.db.marks[m.ID] = m
	}
	for _, ks := range data.KeySets {
		ks.Mappings = copyStringMap(ks.Mappings)
		repo.db.keySets[ks.ID] = ks
	}
	return nil
}
