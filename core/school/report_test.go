package school

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func marks(v float64) *float64 { return &v }

func TestGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.99, "A"},
		{80, "A"},
		{75, "B+"},
		{60, "B"},
		{55, "C"},
		{40, "D"},
		{39.5, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		if got := Grade(tt.pct); got != tt.want {
			t.Errorf("Grade(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	subjects := []Subject{
		{ID: "maths", Name: "Maths", MaxMarks: 100},
		{ID: "eng", Name: "English", MaxMarks: 100},
		{ID: "art", Name: "Art", MaxMarks: 50},
	}

	tests := []struct {
		name       string
		marks      []Mark
		total      float64
		maxTotal   float64
		percentage float64
		grade      string
		result     string
	}{
		{
			name: "pass",
			marks: []Mark{
				{SubjectID: "maths", Marks: marks(90)},
				{SubjectID: "eng", Marks: marks(70)},
				{SubjectID: "art", Marks: marks(40)},
			},
			total: 200, maxTotal: 250, percentage: 80, grade: "A", result: ResultPass,
		},
		{
			name: "failed subject",
			marks: []Mark{
				{SubjectID: "maths", Marks: marks(100)},
				{SubjectID: "eng", Marks: marks(100)},
				{SubjectID: "art", Marks: marks(10)},
			},
			total: 210, maxTotal: 250, percentage: 84, grade: "A", result: ResultFail,
		},
		{
			name: "absent subject",
			marks: []Mark{
				{SubjectID: "maths", Marks: marks(90)},
				{SubjectID: "art", Marks: marks(40)},
			},
			total: 130, maxTotal: 250, percentage: 52, grade: "C", result: ResultFail,
		},
		{
			name: "mark maximum wins",
			marks: []Mark{
				{SubjectID: "maths", Marks: marks(45), MaxMarks: 50},
				{SubjectID: "eng", Marks: marks(45), MaxMarks: 50},
				{SubjectID: "art", Marks: marks(45)},
			},
			total: 135, maxTotal: 150, percentage: 90, grade: "A+", result: ResultPass,
		},
		{
			name:  "no marks",
			total: 0, maxTotal: 250, percentage: 0, grade: "F", result: ResultFail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Summarize(subjects, tt.marks)
			assert.Equal(t, tt.total, r.Total)
			assert.Equal(t, tt.maxTotal, r.MaxTotal)
			assert.Equal(t, tt.percentage, r.Percentage)
			assert.Equal(t, tt.grade, r.Grade)
			assert.Equal(t, tt.result, r.Result)
			assert.Len(t, r.Subjects, len(subjects))
		})
	}

	empty := Summarize(nil, nil)
	assert.Equal(t, 0.0, empty.Percentage)
	assert.Equal(t, ResultFail, empty.Result)
}

func TestSubject_Key(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Maths", "maths"},
		{"Social Studies", "social_studies"},
		{"  Science & Technology ", "science_technology"},
		{"French-2", "french_2"},
		{"Ünïcode", "n_code"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := (Subject{Name: tt.name}).Key(); got != tt.want {
			t.Errorf("Subject{Name: %q}.Key() = %q, want %q", tt.name, got, tt.want)
		}
	}

	swahili := Subject{ID: "sw-1", Name: "Кисвахили", Code: "KSW"}
	assert.Equal(t, "ksw", swahili.Key())
	assert.Equal(t, "{{marks_ksw}}", swahili.MarksPlaceholder())
	swahili.Code = ""
	assert.Equal(t, "sw_1", swahili.Key())
}

func TestReport_RenderContext(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2021, 3, 5, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { NowFunc = time.Now })

	dob := time.Date(2008, 7, 1, 0, 0, 0, 0, time.UTC)
	subjects := []Subject{
		{ID: "m", Name: "Maths", Code: "MTH", MaxMarks: 100},
		{ID: "s", Name: "Social Studies", MaxMarks: 100},
	}
	r := Summarize(subjects, []Mark{{SubjectID: "m", Marks: marks(72.5)}})
	r.Student = Student{
		ID: "st1", Name: "Asha", RollNumber: "12", DateOfBirth: &dob,
		Fields: map[string]string{"house": "Blue", "name": "shadowed"},
	}
	r.Class = Class{ID: "c1", Name: "Grade 8"}

	rc := r.RenderContext(&KeySet{Mappings: map[string]string{"pupil": "studentName"}})
	rec := rc.Resolve.Record

	assert.Equal(t, "Asha", rec["name"])
	assert.Equal(t, "Blue", rec["house"])
	assert.Equal(t, "2008-07-01", rec["dateOfBirth"])
	assert.Equal(t, "05 Mar 2021", rec["date"])
	assert.Equal(t, "Grade 8", rec["className"])
	assert.Equal(t, 72.5, rec["marks_maths"])
	assert.Equal(t, 72.5, rec["marks_mth"])
	assert.Equal(t, "AB", rec["marks_social_studies"])
	assert.NotContains(t, rec, "testName")
	assert.Equal(t, 2.0, rec["subjectCount"])

	assert.Equal(t, 72.5, rc.Vars["total"])
	assert.Equal(t, 200.0, rc.Vars["maxTotal"])
	assert.Equal(t, 0.0, rc.Vars["marks_social_studies"])
	assert.Equal(t, 2.0, rc.Vars["subjectCount"])

	v, ok := rc.Resolve.Lookup("pupil")
	assert.True(t, ok)
	assert.Equal(t, "Asha", v)
}
