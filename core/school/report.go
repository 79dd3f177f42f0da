package school

import (
	"math"
	"time"

	"github.com/trezcool/marksheet/core/canvas"
)

const (
	ResultPass = "PASS"
	ResultFail = "FAIL"

	// PassPercentage is the overall percentage needed to pass.
	PassPercentage = 40
	// SubjectPassPercentage is the percentage needed in every single subject.
	SubjectPassPercentage = 33

	absentText = "AB"
	dateText   = "02 Jan 2006"
)

var NowFunc = time.Now // mockable

var gradeScale = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C"},
	{40, "D"},
}

type (
	SubjectResult struct {
		Subject  Subject `json:"subject"`
		Marks    float64 `json:"marks"`
		MaxMarks float64 `json:"maxMarks"`
		Absent   bool    `json:"absent,omitempty"`
	}

	// Report is a student's result for one test.
	Report struct {
		Student    Student         `json:"student"`
		Class      Class           `json:"class"`
		Test       Test            `json:"test"`
		Subjects   []SubjectResult `json:"subjects"`
		Total      float64         `json:"total"`
		MaxTotal   float64         `json:"maxTotal"`
		Percentage float64         `json:"percentage"`
		Grade      string          `json:"grade"`
		Result     string          `json:"result"`
	}
)

// Grade maps a percentage to its letter grade.
func Grade(pct float64) string {
	for _, g := range gradeScale {
		if pct >= g.min {
			return g.grade
		}
	}
	return "F"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Summarize totals the marks of one test, subject by subject. Subjects without a mark count
// as absent with zero marks; a mark's own maximum wins over the subject's.
func Summarize(subjects []Subject, marks []Mark) Report {
	bySubject := make(map[string]Mark, len(marks))
	for _, m := range marks {
		bySubject[m.SubjectID] = m
	}

	r := Report{Subjects: make([]SubjectResult, 0, len(subjects))}
	failedSubject := false
	for _, sub := range subjects {
		res := SubjectResult{Subject: sub, MaxMarks: sub.MaxMarks, Absent: true}
		if m, ok := bySubject[sub.ID]; ok {
			if m.MaxMarks > 0 {
				res.MaxMarks = m.MaxMarks
			}
			if m.Marks != nil {
				res.Marks = *m.Marks
				res.Absent = false
			}
		}
		if res.MaxMarks > 0 && res.Marks/res.MaxMarks*100 < SubjectPassPercentage {
			failedSubject = true
		}
		r.Total += res.Marks
		r.MaxTotal += res.MaxMarks
		r.Subjects = append(r.Subjects, res)
	}

	if r.MaxTotal > 0 {
		r.Percentage = round2(r.Total / r.MaxTotal * 100)
	}
	r.Grade = Grade(r.Percentage)
	r.Result = ResultFail
	if r.MaxTotal > 0 && r.Percentage >= PassPercentage && !failedSubject {
		r.Result = ResultPass
	}
	return r
}

// Record is the student record extended with class, test and result properties.
func (r Report) Record() map[string]interface{} {
	rec := r.Student.Record()
	set := func(key, val string) {
		if val != "" {
			rec[key] = val
		}
	}
	set("className", r.Class.Name)
	set("classSection", r.Class.Section)
	set("testName", r.Test.Name)
	if r.Test.Date != nil {
		rec["testDate"] = r.Test.Date.Format(dateText)
	}
	rec["date"] = NowFunc().Format(dateText)
	rec["total"] = r.Total
	rec["maxTotal"] = r.MaxTotal
	rec["percentage"] = r.Percentage
	rec["grade"] = r.Grade
	rec["result"] = r.Result
	rec["subjectCount"] = float64(len(r.Subjects))

	for _, res := range r.Subjects {
		var marks interface{} = res.Marks
		if res.Absent {
			marks = absentText
		}
		for _, key := range subjectKeys(res.Subject) {
			rec["marks_"+key] = marks
			rec["maxMarks_"+key] = res.MaxMarks
		}
	}
	return rec
}

// Vars are the numeric values calculated fields can use.
func (r Report) Vars() map[string]float64 {
	vars := map[string]float64{
		"total":        r.Total,
		"maxTotal":     r.MaxTotal,
		"percentage":   r.Percentage,
		"subjectCount": float64(len(r.Subjects)),
	}
	for _, res := range r.Subjects {
		for _, key := range subjectKeys(res.Subject) {
			vars["marks_"+key] = res.Marks
			vars["maxMarks_"+key] = res.MaxMarks
		}
	}
	return vars
}

// RenderContext builds the context a template is rendered with for this report.
func (r Report) RenderContext(ks *KeySet) canvas.RenderContext {
	rc := canvas.RenderContext{
		Resolve: canvas.ResolveContext{Record: r.Record()},
		Vars:    r.Vars(),
	}
	if ks != nil {
		rc.Resolve.KeySet = ks.Mappings
	}
	return rc
}

// SubjectColumns lists subjects the way a subjects table stores them.
func SubjectColumns(subjects []Subject) []canvas.SubjectColumn {
	cols := make([]canvas.SubjectColumn, 0, len(subjects))
	for _, s := range subjects {
		cols = append(cols, canvas.SubjectColumn{
			ID:               s.ID,
			Name:             s.Name,
			MaxMarks:         s.MaxMarks,
			MarksPlaceholder: s.MarksPlaceholder(),
		})
	}
	return cols
}

// BuiltinKeys lists the placeholder keys every report provides, subject keys included.
func BuiltinKeys(subjects []Subject) []string {
	keys := []string{
		"id", "name", "studentName", "rollNumber", "classId", "fatherName", "motherName",
		"guardianEmail", "photo", "dateOfBirth", "className", "classSection", "testName",
		"testDate", "date", "total", "maxTotal", "percentage", "grade", "result", "subjectCount",
	}
	for _, s := range subjects {
		for _, key := range subjectKeys(s) {
			keys = append(keys, "marks_"+key, "maxMarks_"+key)
		}
	}
	return keys
}

func subjectKeys(s Subject) []string {
	keys := make([]string, 0, 2)
	if k := s.Key(); k != "" {
		keys = append(keys, k)
	}
	if code := slug(s.Code); code != "" && (len(keys) == 0 || code != keys[0]) {
		keys = append(keys, code)
	}
	return keys
}
