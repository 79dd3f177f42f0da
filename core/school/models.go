package school

import (
	"strings"
	"time"
	"unicode"
)

const dateLayout = "2006-01-02"

type (
	Class struct {
		ID      string `json:"id" yaml:"id"`
		Name    string `json:"name" yaml:"name"`
		Section string `json:"section,omitempty" yaml:"section,omitempty"`
	}

	Student struct {
		ID            string            `json:"id" yaml:"id"`
		Name          string            `json:"name" yaml:"name"`
		RollNumber    string            `json:"rollNumber" yaml:"rollNumber"`
		ClassID       string            `json:"classId" yaml:"classId"`
		FatherName    string            `json:"fatherName,omitempty" yaml:"fatherName,omitempty"`
		MotherName    string            `json:"motherName,omitempty" yaml:"motherName,omitempty"`
		DateOfBirth   *time.Time        `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty"`
		GuardianEmail string            `json:"guardianEmail,omitempty" yaml:"guardianEmail,omitempty"`
		Photo         string            `json:"photo,omitempty" yaml:"photo,omitempty"`
		Fields        map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"` // custom data fields
	}

	Subject struct {
		ID       string  `json:"id" yaml:"id"`
		Name     string  `json:"name" yaml:"name"`
		Code     string  `json:"code,omitempty" yaml:"code,omitempty"`
		ClassID  string  `json:"classId" yaml:"classId"`
		MaxMarks float64 `json:"maxMarks" yaml:"maxMarks"`
	}

	Test struct {
		ID       string     `json:"id" yaml:"id"`
		Name     string     `json:"name" yaml:"name"`
		ClassID  string     `json:"classId" yaml:"classId"`
		Date     *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
		MaxMarks float64    `json:"maxMarks" yaml:"maxMarks"`
	}

	Mark struct {
		ID        string   `json:"id" yaml:"id"`
		StudentID string   `json:"studentId" yaml:"studentId"`
		SubjectID string   `json:"subjectId" yaml:"subjectId"`
		TestID    string   `json:"testId" yaml:"testId"`
		Marks     *float64 `json:"marks" yaml:"marks"` // nil when absent
		MaxMarks  float64  `json:"maxMarks" yaml:"maxMarks"`
	}

	// KeySet maps placeholder keys to student record fields.
	KeySet struct {
		ID       string            `json:"id" yaml:"id"`
		Name     string            `json:"name" yaml:"name"`
		Mappings map[string]string `json:"mappings" yaml:"mappings" validate:"dive,keys,placeholder_key,endkeys,notblank"`
	}

	StudentFilter struct {
		ClassID string
		Search  string // case-insensitive match on name or roll number
	}

	MarkFilter struct {
		StudentID string
		SubjectID string
		TestID    string
	}

	// Dataset is a bulk import of reference data.
	Dataset struct {
		Classes  []Class   `json:"classes" yaml:"classes"`
		Students []Student `json:"students" yaml:"students"`
		Subjects []Subject `json:"subjects" yaml:"subjects"`
		Tests    []Test    `json:"tests" yaml:"tests"`
		Marks    []Mark    `json:"marks" yaml:"marks"`
		KeySets  []KeySet  `json:"keySets" yaml:"keySets" validate:"dive"`
	}
)

// Record flattens the student into the property map placeholders resolve against.
// Custom fields never shadow the built-in properties; empty values are left out.
func (s Student) Record() map[string]interface{} {
	rec := make(map[string]interface{}, len(s.Fields)+9)
	for k, v := range s.Fields {
		if v != "" {
			rec[k] = v
		}
	}
	set := func(key, val string) {
		if val != "" {
			rec[key] = val
		}
	}
	set("id", s.ID)
	set("name", s.Name)
	set("studentName", s.Name)
	set("rollNumber", s.RollNumber)
	set("classId", s.ClassID)
	set("fatherName", s.FatherName)
	set("motherName", s.MotherName)
	set("guardianEmail", s.GuardianEmail)
	set("photo", s.Photo)
	if s.DateOfBirth != nil {
		rec["dateOfBirth"] = s.DateOfBirth.Format(dateLayout)
	}
	return rec
}

// GuardianName is the name used to greet the student's guardian.
func (s Student) GuardianName() string {
	switch {
	case s.FatherName != "":
		return s.FatherName
	case s.MotherName != "":
		return s.MotherName
	default:
		return "Parent/Guardian"
	}
}

// Key is the placeholder-safe form of the subject name: "Social Studies" -> "social_studies".
// Names without ASCII letters or digits fall back to the subject code, then to its id.
func (s Subject) Key() string {
	for _, name := range []string{s.Name, s.Code, s.ID} {
		if k := slug(name); k != "" {
			return k
		}
	}
	return ""
}

func slug(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.TrimSpace(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
			underscore = false
		} else if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// MarksPlaceholder is the token a subjects table uses for this subject's marks.
func (s Subject) MarksPlaceholder() string {
	return "{{marks_" + s.Key() + "}}"
}
