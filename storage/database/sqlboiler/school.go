package boiledrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/school"
)

type (
	classRow struct {
		ID      string      `boil:"id"`
		Name    string      `boil:"name"`
		Section null.String `boil:"section"`
	}

	studentRow struct {
		ID            string      `boil:"id"`
		Name          string      `boil:"name"`
		RollNumber    string      `boil:"roll_number"`
		ClassID       string      `boil:"class_id"`
		FatherName    null.String `boil:"father_name"`
		MotherName    null.String `boil:"mother_name"`
		DateOfBirth   null.Time   `boil:"date_of_birth"`
		GuardianEmail null.String `boil:"guardian_email"`
		Photo         null.String `boil:"photo"`
		Fields        null.JSON   `boil:"fields"`
	}

	subjectRow struct {
		ID       string      `boil:"id"`
		Name     string      `boil:"name"`
		Code     null.String `boil:"code"`
		ClassID  string      `boil:"class_id"`
		MaxMarks float64     `boil:"max_marks"`
	}

	testRow struct {
		ID       string    `boil:"id"`
		Name     string    `boil:"name"`
		ClassID  string    `boil:"class_id"`
		Date     null.Time `boil:"date"`
		MaxMarks float64   `boil:"max_marks"`
	}

	markRow struct {
		ID        string       `boil:"id"`
		StudentID string       `boil:"student_id"`
		SubjectID string       `boil:"subject_id"`
		TestID    string       `boil:"test_id"`
		Marks     null.Float64 `boil:"marks"`
		MaxMarks  float64      `boil:"max_marks"`
	}

	keySetRow struct {
		ID       string    `boil:"id"`
		Name     string    `boil:"name"`
		Mappings null.JSON `boil:"mappings"`
	}
)

const (
	classColumns   = "id, name, section"
	studentColumns = "id, name, roll_number, class_id, father_name, mother_name, date_of_birth, guardian_email, photo, fields"
	subjectColumns = "id, name, code, class_id, max_marks"
	testColumns    = "id, name, class_id, date, max_marks"
	markColumns    = "id, student_id, subject_id, test_id, marks, max_marks"
	keySetColumns  = "id, name, mappings"
)

type schoolRepository struct {
	exec core.DBExecutor
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{exec: exec}
}

func (repo schoolRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to school.ErrNotFound
func (repo schoolRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func unboilClass(c classRow) school.Class {
	return school.Class{ID: c.ID, Name: c.Name, Section: c.Section.String}
}

func unboilStudent(s studentRow) (school.Student, error) {
	std := school.Student{
		ID:            s.ID,
		Name:          s.Name,
		RollNumber:    s.RollNumber,
		ClassID:       s.ClassID,
		FatherName:    s.FatherName.String,
		MotherName:    s.MotherName.String,
		DateOfBirth:   s.DateOfBirth.Ptr(),
		GuardianEmail: s.GuardianEmail.String,
		Photo:         s.Photo.String,
	}
	if s.Fields.Valid {
		if err := s.Fields.Unmarshal(&std.Fields); err != nil {
			return school.Student{}, errors.Wrapf(err, "decoding fields of student %s", s.ID)
		}
	}
	return std, nil
}

func unboilSubject(s subjectRow) school.Subject {
	return school.Subject{ID: s.ID, Name: s.Name, Code: s.Code.String, ClassID: s.ClassID, MaxMarks: s.MaxMarks}
}

func unboilTest(t testRow) school.Test {
	return school.Test{ID: t.ID, Name: t.Name, ClassID: t.ClassID, Date: t.Date.Ptr(), MaxMarks: t.MaxMarks}
}

func unboilMark(m markRow) school.Mark {
	return school.Mark{
		ID:        m.ID,
		StudentID: m.StudentID,
		SubjectID: m.SubjectID,
		TestID:    m.TestID,
		Marks:     m.Marks.Ptr(),
		MaxMarks:  m.MaxMarks,
	}
}

func unboilKeySet(k keySetRow) (school.KeySet, error) {
	ks := school.KeySet{ID: k.ID, Name: k.Name, Mappings: map[string]string{}}
	if k.Mappings.Valid {
		if err := k.Mappings.Unmarshal(&ks.Mappings); err != nil {
			return school.KeySet{}, errors.Wrapf(err, "decoding mappings of key set %s", k.ID)
		}
	}
	return ks, nil
}

// where joins the non-empty conditions into a WHERE clause numbered for postgres.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (repo schoolRepository) QueryClasses(ctx context.Context, exec ...core.DBExecutor) ([]school.Class, error) {
	var rows []classRow
	q := queries.Raw(`SELECT ` + classColumns + ` FROM classes ORDER BY name, section, id`)
	if err := q.Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, unboilClass(r))
	}
	return classes, nil
}

func (repo schoolRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (school.Class, error) {
	var row classRow
	q := queries.Raw(`SELECT `+classColumns+` FROM classes WHERE id = $1`, id)
	if err := q.Bind(ctx, repo.getExec(exec), &row); err != nil {
		return school.Class{}, repo.trapNoRowsErr(err, "selecting class")
	}
	return unboilClass(row), nil
}

func (repo schoolRepository) QueryStudents(ctx context.Context, filter school.StudentFilter, exec ...core.DBExecutor) ([]school.Student, error) {
	w := new(where)
	if filter.ClassID != "" {
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		w.add("(name ILIKE ? OR roll_number ILIKE ?)", pattern, pattern)
	}

	var rows []studentRow
	q := queries.Raw(`SELECT `+studentColumns+` FROM students`+w.String()+` ORDER BY class_id, roll_number, id`, w.args...)
	if err := q.Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, r := range rows {
		std, err := unboilStudent(r)
		if err != nil {
			return nil, err
		}
		students = append(students, std)
	}
	return students, nil
}

func (repo schoolRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (school.Student, error) {
	var row studentRow
	q := queries.Raw(`SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	if err := q.Bind(ctx, repo.getExec(exec), &row); err != nil {
		return school.Student{}, repo.trapNoRowsErr(err, "selecting student")
	}
	return unboilStudent(row)
}

func (repo schoolRepository) QuerySubjects(ctx context.Context, classID string, exec ...core.DBExecutor) ([]school.Subject, error) {
	w := new(where)
	if classID != "" {
		w.add("class_id = ?", classID)
	}
	var rows []subjectRow
	q := queries.Raw(`SELECT `+subjectColumns+` FROM subjects`+w.String()+` ORDER BY name, id`, w.args...)
	if err := q.Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	subjects := make([]school.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, unboilSubject(r))
	}
	return subjects, nil
}

func (repo schoolRepository) QueryTests(ctx context.Context, classID string, exec ...core.DBExecutor) ([]school.Test, error) {
	w := new(where)
	if classID != "" {
		w.add("class_id = ?", classID)
	}
	var rows []testRow
	q := queries.Raw(`SELECT `+testColumns+` FROM tests`+w.String()+` ORDER BY date ASC NULLS FIRST, id`, w.args...)
	if err := q.Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "selecting tests")
	}
	tests := make([]school.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, unboilTest(r))
	}
	return tests, nil
}

func (repo schoolRepository) GetTest(ctx context.Context, id string, exec ...core.DBExecutor) (school.Test, error) {
	var row testRow
	q := queries.Raw(`SELECT `+testColumns+` FROM tests WHERE id = $1`, id)
	if err := q.Bind(ctx, repo.getExec(exec), &row); err != nil {
		return school.Test{}, repo.trapNoRowsErr(err, "selecting test")
	}
	return unboilTest(row), nil
}

func (repo schoolRepository) QueryMarks(ctx context.Context, filter school.MarkFilter, exec ...core.DBExecutor) ([]school.Mark, error) {
	w := new(where)
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.SubjectID != "" {
		w.add("subject_id = ?", filter.SubjectID)
	}
	if filter.TestID != "" {
		w.add("test_id = ?", filter.TestID)
	}
	var rows []markRow
	q := queries.Raw(`SELECT `+markColumns+` FROM marks`+w.String()+` ORDER BY id`, w.args...)
	if err := q.Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "selecting marks")
	}
	marks := make([]school.Mark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, unboilMark(r))
	}
	return marks, nil
}

func (repo schoolRepository) QueryKeySets(ctx context.Context, exec ...core.DBExecutor) ([]school.KeySet, error) {
	var rows []keySetRow
	q := queries.Raw(`SELECT ` + keySetColumns + ` FROM key_sets ORDER BY name, id`)
	if err := q.Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "selecting key sets")
	}
	sets := make([]school.KeySet, 0, len(rows))
	for _, r := range rows {
		ks, err := unboilKeySet(r)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ks)
	}
	return sets, nil
}

func (repo schoolRepository) GetKeySet(ctx context.Context, id string, exec ...core.DBExecutor) (school.KeySet, error) {
	var row keySetRow
	q := queries.Raw(`SELECT `+keySetColumns+` FROM key_sets WHERE id = $1`, id)
	if err := q.Bind(ctx, repo.getExec(exec), &row); err != nil {
		return school.KeySet{}, repo.trapNoRowsErr(err, "selecting key set")
	}
	return unboilKeySet(row)
}

// Import upserts the dataset in a single transaction, parents first.
func (repo schoolRepository) Import(ctx context.Context, data school.Dataset, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	if db, ok := ex.(core.DB); ok {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "beginning import")
		}
		if err = repo.upsert(ctx, tx, data); err != nil {
			_ = tx.Rollback()
			return err
		}
		return errors.Wrap(tx.Commit(), "committing import")
	}
	return repo.upsert(ctx, ex, data)
}

func (repo schoolRepository) upsert(ctx context.Context, exec core.DBExecutor, data school.Dataset) error {
	run := func(what, q string, args ...interface{}) error {
		if _, err := queries.Raw(q, args...).ExecContext(ctx, exec); err != nil {
			return errors.Wrapf(err, "importing %s", what)
		}
		return nil
	}
	nullDate := func(t *time.Time) null.Time { return null.TimeFromPtr(t) }
	jsonb := func(v interface{}) (null.JSON, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return null.JSON{}, err
		}
		return null.JSONFrom(b), nil
	}

	for _, c := range data.Classes {
		if err := run("class "+c.ID, `INSERT INTO classes (`+classColumns+`) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, section = EXCLUDED.section`,
			c.ID, c.Name, null.NewString(c.Section, c.Section != "")); err != nil {
			return err
		}
	}
	for _, s := range data.Students {
		fields := s.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		js, err := jsonb(fields)
		if err != nil {
			return errors.Wrapf(err, "encoding fields of student %s", s.ID)
		}
		if err := run("student "+s.ID, `INSERT INTO students (`+studentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, roll_number = EXCLUDED.roll_number,
				class_id = EXCLUDED.class_id, father_name = EXCLUDED.father_name,
				mother_name = EXCLUDED.mother_name, date_of_birth = EXCLUDED.date_of_birth,
				guardian_email = EXCLUDED.guardian_email, photo = EXCLUDED.photo, fields = EXCLUDED.fields`,
			s.ID, s.Name, s.RollNumber, s.ClassID,
			null.NewString(s.FatherName, s.FatherName != ""),
			null.NewString(s.MotherName, s.MotherName != ""),
			nullDate(s.DateOfBirth),
			null.NewString(s.GuardianEmail, s.GuardianEmail != ""),
			null.NewString(s.Photo, s.Photo != ""),
			js); err != nil {
			return err
		}
	}
	for _, s := range data.Subjects {
		if err := run("subject "+s.ID, `INSERT INTO subjects (`+subjectColumns+`) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, code = EXCLUDED.code,
				class_id = EXCLUDED.class_id, max_marks = EXCLUDED.max_marks`,
			s.ID, s.Name, null.NewString(s.Code, s.Code != ""), s.ClassID, s.MaxMarks); err != nil {
			return err
		}
	}
	for _, t := range data.Tests {
		if err := run("test "+t.ID, `INSERT INTO tests (`+testColumns+`) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, class_id = EXCLUDED.class_id,
				date = EXCLUDED.date, max_marks = EXCLUDED.max_marks`,
			t.ID, t.Name, t.ClassID, nullDate(t.Date), t.MaxMarks); err != nil {
			return err
		}
	}
	for _, m := range data.Marks {
		if err := run("mark "+m.ID, `INSERT INTO marks (`+markColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET student_id = EXCLUDED.student_id, subject_id = EXCLUDED.subject_id,
				test_id = EXCLUDED.test_id, marks = EXCLUDED.marks, max_marks = EXCLUDED.max_marks`,
			m.ID, m.StudentID, m.SubjectID, m.TestID, null.Float64FromPtr(m.Marks), m.MaxMarks); err != nil {
			return err
		}
	}
	for _, ks := range data.KeySets {
		mappings := ks.Mappings
		if mappings == nil {
			mappings = map[string]string{}
		}
		js, err := jsonb(mappings)
		if err != nil {
			return errors.Wrapf(err, "encoding mappings of key set %s", ks.ID)
		}
		if err := run("key set "+ks.ID, `INSERT INTO key_sets (`+keySetColumns+`) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, mappings = EXCLUDED.mappings`,
			ks.ID, ks.Name, js); err != nil {
			return err
		}
	}
	return nil
}
