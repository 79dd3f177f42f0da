package school

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseDataset decodes a YAML (or JSON) dataset and checks its references.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, errors.Wrap(err, "decoding dataset")
	}
	if err := ds.Check(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// Check reports the first record with no id, or with a reference to a record missing from the
// dataset. References to a kind of record the dataset does not carry are left to the database.
func (ds Dataset) Check() error {
	ids := func(kind string, n int, id func(int) string) (map[string]struct{}, error) {
		set := make(map[string]struct{}, n)
		for i := 0; i < n; i++ {
			if id(i) == "" {
				return nil, errors.Errorf("%s %d has no id", kind, i)
			}
			set[id(i)] = struct{}{}
		}
		return set, nil
	}
	ref := func(set map[string]struct{}, kind, id, field, target string) error {
		if len(set) == 0 {
			return nil
		}
		if _, ok := set[target]; !ok {
			return errors.Errorf("%s %s: unknown %s %q", kind, id, field, target)
		}
		return nil
	}

	classes, err := ids("class", len(ds.Classes), func(i int) string { return ds.Classes[i].ID })
	if err != nil {
		return err
	}
	students, err := ids("student", len(ds.Students), func(i int) string { return ds.Students[i].ID })
	if err != nil {
		return err
	}
	subjects, err := ids("subject", len(ds.Subjects), func(i int) string { return ds.Subjects[i].ID })
	if err != nil {
		return err
	}
	tests, err := ids("test", len(ds.Tests), func(i int) string { return ds.Tests[i].ID })
	if err != nil {
		return err
	}
	if _, err = ids("mark", len(ds.Marks), func(i int) string { return ds.Marks[i].ID }); err != nil {
		return err
	}
	if _, err = ids("key set", len(ds.KeySets), func(i int) string { return ds.KeySets[i].ID }); err != nil {
		return err
	}

	for _, s := range ds.Students {
		if err := ref(classes, "student", s.ID, "class", s.ClassID); err != nil {
			return err
		}
	}
	for _, s := range ds.Subjects {
		if err := ref(classes, "subject", s.ID, "class", s.ClassID); err != nil {
			return err
		}
	}
	for _, t := range ds.Tests {
		if err := ref(classes, "test", t.ID, "class", t.ClassID); err != nil {
			return err
		}
	}
	for _, m := range ds.Marks {
		if err := ref(students, "mark", m.ID, "student", m.StudentID); err != nil {
			return err
		}
		if err := ref(subjects, "mark", m.ID, "subject", m.SubjectID); err != nil {
			return err
		}
		if err := ref(tests, "mark", m.ID, "test", m.TestID); err != nil {
			return err
		}
	}
	return nil
}
