package school

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
)

var ErrNotFound = errors.New("record not found")

type (
	// Repository reads the school reference data the marksheet builder consumes.
	Repository interface {
		QueryClasses(ctx context.Context, exec ...core.DBExecutor) ([]Class, error)
		GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error)
		// QueryStudents applies AND operation on the non-empty StudentFilter fields.
		QueryStudents(ctx context.Context, filter StudentFilter, exec ...core.DBExecutor) ([]Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		QuerySubjects(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Subject, error)
		QueryTests(ctx context.Context, classID string, exec ...core.DBExecutor) ([]Test, error)
		GetTest(ctx context.Context, id string, exec ...core.DBExecutor) (Test, error)
		QueryMarks(ctx context.Context, filter MarkFilter, exec ...core.DBExecutor) ([]Mark, error)
		QueryKeySets(ctx context.Context, exec ...core.DBExecutor) ([]KeySet, error)
		GetKeySet(ctx context.Context, id string, exec ...core.DBExecutor) (KeySet, error)
		// Import inserts or replaces every record of the dataset.
		Import(ctx context.Context, data Dataset, exec ...core.DBExecutor) error
	}

	Service interface {
		Classes(ctx context.Context) ([]Class, error)
		Students(ctx context.Context, filter StudentFilter) ([]Student, error)
		Student(ctx context.Context, id string) (Student, error)
		Subjects(ctx context.Context, classID string) ([]Subject, error)
		Tests(ctx context.Context, classID string) ([]Test, error)
		Marks(ctx context.Context, filter MarkFilter) ([]Mark, error)
		KeySets(ctx context.Context) ([]KeySet, error)
		KeySet(ctx context.Context, id string) (KeySet, error)
		// Report summarizes the student's marks for a test; an empty testID picks the class's
		// latest test.
		Report(ctx context.Context, studentID, testID string) (Report, error)
		Import(ctx context.Context, data Dataset) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Classes(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryClasses(ctx)
}

func (svc *service) Students(ctx context.Context, filter StudentFilter) ([]Student, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryStudents(ctx, filter)
}

func (svc *service) Student(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) Subjects(ctx context.Context, classID string) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, classID)
}

func (svc *service) Tests(ctx context.Context, classID string) ([]Test, error) {
	return svc.repo.QueryTests(ctx, classID)
}

func (svc *service) Marks(ctx context.Context, filter MarkFilter) ([]Mark, error) {
	return svc.repo.QueryMarks(ctx, filter)
}

func (svc *service) KeySets(ctx context.Context) ([]KeySet, error) {
	return svc.repo.QueryKeySets(ctx)
}

func (svc *service) KeySet(ctx context.Context, id string) (KeySet, error) {
	return svc.repo.GetKeySet(ctx, id)
}

func (svc *service) Report(ctx context.Context, studentID, testID string) (Report, error) {
	std, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		return Report{}, err
	}

	class, err := svc.repo.GetClass(ctx, std.ClassID)
	if err != nil && err != ErrNotFound {
		return Report{}, err
	}

	var test Test
	if testID != "" {
		if test, err = svc.repo.GetTest(ctx, testID); err != nil {
			return Report{}, err
		}
	} else {
		tests, err := svc.repo.QueryTests(ctx, std.ClassID)
		if err != nil {
			return Report{}, err
		}
		test = latestTest(tests)
	}

	subjects, err := svc.repo.QuerySubjects(ctx, std.ClassID)
	if err != nil {
		return Report{}, err
	}
	var marks []Mark
	if test.ID != "" {
		if marks, err = svc.repo.QueryMarks(ctx, MarkFilter{StudentID: std.ID, TestID: test.ID}); err != nil {
			return Report{}, err
		}
	}

	r := Summarize(subjects, marks)
	r.Student = std
	r.Class = class
	r.Test = test
	return r, nil
}

func (svc *service) Import(ctx context.Context, data Dataset) error {
	return svc.repo.Import(ctx, data)
}

// latestTest returns the most recent dated test, or the last one listed when none is dated.
func latestTest(tests []Test) Test {
	if len(tests) == 0 {
		return Test{}
	}
	sorted := append([]Test(nil), tests...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Date, sorted[j].Date
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return sorted[len(sorted)-1]
}
