package testutil

import (
	"context"
	"log"
	"net/mail"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
)

// Fixture ids of the dataset loaded by SeedSchool.
const (
	ClassID    = "c1"
	StudentA   = "s1" // Asha, guardian email set
	StudentB   = "s2" // Brian, no guardian email
	StudentC   = "s3" // Chidi, guardian email set
	MathsID    = "maths"
	EnglishID  = "english"
	TestID     = "t1"
	LaterTest  = "t2"
	KeySetID   = "ks1"
	OtherClass = "c2"
)

// Config is the configuration tests run with; nothing is read from the environment.
func Config() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Debug:            true,
		TestMode:         true,
		AppName:          "Marksheet",
		Build:            "test",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Marksheet", Address: "noreply@localhost"},
		Storage:          core.StorageMemory,
		Server: core.ServerConfig{
			Address:         ":0",
			ShutdownTimeout: time.Second,
			DisableReqLogs:  true,
		},
	}
}

type testLogger struct {
	t *testing.T
}

var _ core.Logger = (*testLogger)(nil)

// NewLogger logs through t, so output only shows for failing tests.
func NewLogger(t *testing.T) core.Logger {
	return &testLogger{t: t}
}

func (l testLogger) log(level, msg string, args []interface{}) {
	l.t.Helper()
	l.t.Logf("%s: %s %v", level, msg, args)
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	l.t.FailNow()
}

// StdLogger is a std logger writing to stderr.
func StdLogger() *log.Logger {
	return log.New(os.Stderr, "TEST : ", log.LstdFlags|log.Lshortfile)
}

func floatPtr(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// Dataset is a small class of three students with two subjects and two tests.
func Dataset() school.Dataset {
	return school.Dataset{
		Classes: []school.Class{
			{ID: ClassID, Name: "Grade 8", Section: "A"},
			{ID: OtherClass, Name: "Grade 9"},
		},
		Students: []school.Student{
			{
				ID: StudentA, Name: "Asha Mwamba", RollNumber: "01", ClassID: ClassID,
				FatherName: "Joseph Mwamba", GuardianEmail: "joseph@example.com",
				DateOfBirth: date(2008, time.July, 1),
				Fields:      map[string]string{"house": "Blue"},
			},
			{ID: StudentB, Name: "Brian Otieno", RollNumber: "02", ClassID: ClassID},
			{
				ID: StudentC, Name: "Chidi Okafor", RollNumber: "03", ClassID: ClassID,
				MotherName: "Ada Okafor", GuardianEmail: "ada@example.com",
			},
		},
		Subjects: []school.Subject{
			{ID: MathsID, Name: "Maths", ClassID: ClassID, MaxMarks: 100},
			{ID: EnglishID, Name: "English", ClassID: ClassID, MaxMarks: 100},
		},
		Tests: []school.Test{
			{ID: TestID, Name: "Term 1", ClassID: ClassID, Date: date(2021, time.April, 9), MaxMarks: 200},
			{ID: LaterTest, Name: "Term 2", ClassID: ClassID, Date: date(2021, time.August, 13), MaxMarks: 200},
		},
		Marks: []school.Mark{
			{ID: "m1", StudentID: StudentA, SubjectID: MathsID, TestID: TestID, Marks: floatPtr(90), MaxMarks: 100},
			{ID: "m2", StudentID: StudentA, SubjectID: EnglishID, TestID: TestID, Marks: floatPtr(80), MaxMarks: 100},
			{ID: "m3", StudentID: StudentB, SubjectID: MathsID, TestID: TestID, Marks: floatPtr(20), MaxMarks: 100},
			{ID: "m4", StudentID: StudentB, SubjectID: EnglishID, TestID: TestID, Marks: floatPtr(70), MaxMarks: 100},
			{ID: "m5", StudentID: StudentA, SubjectID: MathsID, TestID: LaterTest, Marks: floatPtr(50), MaxMarks: 100},
			{ID: "m6", StudentID: StudentA, SubjectID: EnglishID, TestID: LaterTest, Marks: floatPtr(50), MaxMarks: 100},
		},
		KeySets: []school.KeySet{
			{ID: KeySetID, Name: "Default", Mappings: map[string]string{"pupil": "studentName", "roll": "rollNumber"}},
		},
	}
}

// SeedSchool imports Dataset into repo.
func SeedSchool(t *testing.T, repo school.Repository) school.Dataset {
	ds := Dataset()
	if err := repo.Import(context.Background(), ds); err != nil {
		t.Fatalf("SeedSchool() failed: %v", err)
	}
	return ds
}

// Elements builds elements of the given kinds at their default places, with ids e1, e2...
func Elements(kinds ...canvas.Kind) []canvas.Element {
	els := make([]canvas.Element, 0, len(kinds))
	for i, k := range kinds {
		els = append(els, canvas.NewElement(k, "e"+strconv.Itoa(i+1)))
	}
	return els
}

// CreateTemplate stores a template with the given elements.
func CreateTemplate(
	t *testing.T,
	repo marksheet.Repository,
	id, name, classID string,
	elements []canvas.Element,
	updatedAt ...time.Time,
) marksheet.Template {
	doc := canvas.NewDocument(name)
	doc.InstitutionName = "Springfield High"
	doc.Elements = elements
	saved, err := canvas.Save(doc)
	if err != nil {
		t.Fatalf("CreateTemplate() failed: %v", err)
	}
	saved.TemplateID = id

	tstamp := time.Now().UTC()
	if len(updatedAt) > 0 {
		tstamp = updatedAt[0].UTC()
	}
	tpl, err := repo.CreateTemplate(context.Background(), marksheet.Template{
		SavedDocument: saved,
		ClassID:       classID,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	})
	if err != nil {
		t.Fatalf("CreateTemplate() failed: %v", err)
	}
	return tpl
}
