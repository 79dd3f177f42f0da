package marksheet_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
	"github.com/trezcool/marksheet/core/marksheet"
	"github.com/trezcool/marksheet/core/school"
	"github.com/trezcool/marksheet/services/email"
	"github.com/trezcool/marksheet/storage/database/inmem"
	"github.com/trezcool/marksheet/tests"
)

type fixture struct {
	svc  marksheet.Service
	repo marksheet.Repository
}

func setup(t *testing.T) fixture {
	conf := testutil.Config()
	logger := testutil.NewLogger(t)
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ClearSentMessages()

	db := inmemdb.Open()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	testutil.SeedSchool(t, schoolRepo)
	tplRepo := inmemdb.NewTemplateRepository(db)

	return fixture{
		svc:  marksheet.NewService(tplRepo, school.NewService(schoolRepo), emailsvc.NewConsoleServiceMock(conf, logger), logger),
		repo: tplRepo,
	}
}

func mockNow(t *testing.T, now time.Time) {
	marksheet.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { marksheet.NowFunc = time.Now })
}

func TestService_Create(t *testing.T) {
	fx := setup(t)
	now := time.Date(2021, time.May, 3, 10, 0, 0, 0, time.UTC)
	mockNow(t, now)

	tpl, err := fx.svc.Create(context.Background(), marksheet.NewTemplate{
		ClassID:         testutil.ClassID,
		TemplateName:    "  Term Report ",
		InstitutionName: "Springfield High",
		Elements:        testutil.Elements(canvas.KindHeading, canvas.KindStudentName, canvas.KindSubjectsTable),
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	assert.NotEmpty(t, tpl.TemplateID)
	assert.Equal(t, "Term Report", tpl.TemplateName)
	assert.Equal(t, testutil.ClassID, tpl.ClassID)
	assert.Equal(t, now, tpl.CreatedAt)
	assert.Equal(t, now, tpl.UpdatedAt)
	assert.Len(t, tpl.Elements, 3)
	assert.NotNil(t, tpl.Sections)
	assert.Contains(t, tpl.HTML, `data-id="e2"`)
	assert.Empty(t, tpl.Warnings)

	got, err := fx.svc.Get(context.Background(), tpl.TemplateID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assert.Equal(t, tpl.SavedDocument, got.SavedDocument)
}

func TestService_Create_warnings(t *testing.T) {
	fx := setup(t)

	el := canvas.NewElement(canvas.KindText, "e1")
	el.Props.(*canvas.TextProps).Content = "Roll: {{rollNumbr}} House: {{house}} Pupil: {{pupil}} {{favouriteColour}}"

	tpl, err := fx.svc.Create(context.Background(), marksheet.NewTemplate{
		ClassID:      testutil.ClassID,
		TemplateName: "Warnings",
		Elements:     []canvas.Element{el},
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// house is a custom student field and pupil a key set key: both known
	if assert.Len(t, tpl.Warnings, 2) {
		assert.Equal(t, "rollNumbr", tpl.Warnings[0].Placeholder)
		assert.Equal(t, "rollNumber", tpl.Warnings[0].Suggestion)
		assert.Equal(t, "unknown placeholder {{rollNumbr}}, did you mean {{rollNumber}}?", tpl.Warnings[0].Message)
		assert.Equal(t, "favouriteColour", tpl.Warnings[1].Placeholder)
		assert.Empty(t, tpl.Warnings[1].Suggestion)
	}
}

func TestService_Update(t *testing.T) {
	fx := setup(t)
	created := time.Date(2021, time.May, 3, 10, 0, 0, 0, time.UTC)
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID, testutil.Elements(canvas.KindText), created)

	updated := created.Add(time.Hour)
	mockNow(t, updated)

	tests := []struct {
		name    string
		ut      marksheet.UpdateTemplate
		wantErr error
	}{
		{
			name:    "unknown template",
			ut:      marksheet.UpdateTemplate{TemplateID: "nope", NewTemplate: marksheet.NewTemplate{TemplateName: "X"}},
			wantErr: marksheet.ErrNotFound,
		},
		{
			name: "ok",
			ut: marksheet.UpdateTemplate{
				TemplateID: tpl.TemplateID,
				NewTemplate: marksheet.NewTemplate{
					TemplateName: "Final Report",
					Elements:     testutil.Elements(canvas.KindText, canvas.KindGrade),
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fx.svc.Update(context.Background(), tt.ut)
			if tt.wantErr != nil {
				if errors.Cause(err) != tt.wantErr {
					t.Errorf("Update() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() failed: %v", err)
			}
			assert.Equal(t, "Final Report", got.TemplateName)
			assert.Empty(t, got.ClassID)
			assert.Len(t, got.Elements, 2)
			assert.Equal(t, created, got.CreatedAt)
			assert.Equal(t, updated, got.UpdatedAt)
		})
	}
}

func TestService_Query(t *testing.T) {
	fx := setup(t)
	base := time.Date(2021, time.May, 3, 10, 0, 0, 0, time.UTC)
	alpha := testutil.CreateTemplate(t, fx.repo, "a", "Alpha", testutil.ClassID, nil, base.Add(2*time.Hour))
	beta := testutil.CreateTemplate(t, fx.repo, "b", "beta report", testutil.OtherClass, nil, base)
	gamma := testutil.CreateTemplate(t, fx.repo, "c", "Gamma Report", testutil.ClassID, nil, base.Add(time.Hour))

	ids := func(tpls []marksheet.Template) []string {
		res := make([]string, 0, len(tpls))
		for _, tpl := range tpls {
			res = append(res, tpl.TemplateID)
		}
		return res
	}

	tests := []struct {
		name     string
		filter   *marksheet.QueryFilter
		ordering []core.DBOrdering
		want     []string
		wantErr  bool
	}{
		{name: "default ordering", want: ids([]marksheet.Template{alpha, gamma, beta})},
		{
			name:     "by name",
			ordering: []core.DBOrdering{{Field: marksheet.OrderByTemplateName, Ascending: true}},
			want:     ids([]marksheet.Template{alpha, beta, gamma}),
		},
		{
			name:     "by class then creation",
			filter:   &marksheet.QueryFilter{ClassID: testutil.ClassID},
			ordering: []core.DBOrdering{{Field: marksheet.OrderByCreatedAt, Ascending: true}},
			want:     ids([]marksheet.Template{gamma, alpha}),
		},
		{
			name:   "search",
			filter: &marksheet.QueryFilter{Search: " REPORT "},
			want:   ids([]marksheet.Template{gamma, beta}),
		},
		{
			name:     "unknown ordering",
			ordering: []core.DBOrdering{{Field: "html"}},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fx.svc.Query(context.Background(), tt.filter, tt.ordering)
			if tt.wantErr {
				if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
					t.Errorf("Query() error = %v, want a validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestService_Delete(t *testing.T) {
	fx := setup(t)
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID, nil)

	if err := fx.svc.Delete(context.Background(), tpl.TemplateID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := fx.svc.Get(context.Background(), tpl.TemplateID); err != marksheet.ErrNotFound {
		t.Errorf("Get() error = %v, want %v", err, marksheet.ErrNotFound)
	}
	if err := fx.svc.Delete(context.Background(), tpl.TemplateID); err != marksheet.ErrNotFound {
		t.Errorf("Delete() error = %v, want %v", err, marksheet.ErrNotFound)
	}
}

func TestService_Export(t *testing.T) {
	fx := setup(t)
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID,
		testutil.Elements(canvas.KindStudentName))

	html, err := fx.svc.Export(context.Background(), tpl.TemplateID)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	assert.Equal(t, tpl.HTML, html)
	assert.Contains(t, html, "Student Name: {{studentName}}")
}

func TestService_Preview(t *testing.T) {
	fx := setup(t)
	calc := canvas.NewElement(canvas.KindCalculated, "e4")
	calc.Props.(*canvas.CalcProps).Formula = "marks_maths + bonus"
	elements := append(testutil.Elements(canvas.KindStudentName, canvas.KindTotalMarks, canvas.KindGrade), calc)
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID, elements)

	tests := []struct {
		name         string
		req          marksheet.PreviewRequest
		want         []string
		wantFormulas int
		wantErr      error
	}{
		{
			name: "explicit test",
			req:  marksheet.PreviewRequest{StudentID: testutil.StudentA, TestID: testutil.TestID},
			want: []string{"Student Name: Asha Mwamba", "Total: 170 / 200", "Grade: A", "#ERR"},
			// bonus is not a variable
			wantFormulas: 1,
		},
		{
			name:         "latest test",
			req:          marksheet.PreviewRequest{StudentID: testutil.StudentA},
			want:         []string{"Total: 100 / 200", "Grade: C"},
			wantFormulas: 1,
		},
		{
			name:    "unknown student",
			req:     marksheet.PreviewRequest{StudentID: "nope"},
			wantErr: school.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fx.svc.Preview(context.Background(), tpl.TemplateID, tt.req)
			if tt.wantErr != nil {
				if errors.Cause(err) != tt.wantErr {
					t.Errorf("Preview() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Preview() failed: %v", err)
			}
			for _, s := range tt.want {
				assert.Contains(t, got.HTML, s)
			}
			assert.Len(t, got.FormulaErrors, tt.wantFormulas)
		})
	}
}

func TestService_Preview_keySet(t *testing.T) {
	fx := setup(t)
	el := canvas.NewElement(canvas.KindText, "e1")
	el.Props.(*canvas.TextProps).Content = "{{pupil}} ({{roll}}) of {{institutionName}}"
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID, []canvas.Element{el})

	got, err := fx.svc.Preview(context.Background(), tpl.TemplateID, marksheet.PreviewRequest{
		StudentID: testutil.StudentB,
		KeySetID:  testutil.KeySetID,
	})
	if err != nil {
		t.Fatalf("Preview() failed: %v", err)
	}
	assert.Contains(t, got.HTML, "Brian Otieno (02) of Springfield High")
}

func raw(t *testing.T, v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	return data
}

func TestService_ApplyEdits(t *testing.T) {
	fx := setup(t)
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID,
		testutil.Elements(canvas.KindText, canvas.KindBox))

	got, err := fx.svc.ApplyEdits(context.Background(), tpl.TemplateID, []marksheet.Operation{
		{Op: marksheet.OpAdd, ID: "e3", Type: canvas.KindGrade},
		{Op: marksheet.OpUpdate, ID: "e1", Property: "content", Value: raw(t, "Hello {{studentName}}")},
		{Op: marksheet.OpMove, ID: "e1", DX: 10, DY: 20},
		{Op: marksheet.OpResize, ID: "e2", Handle: canvas.Handle("se"), DX: 50, DY: 10},
		{Op: marksheet.OpLayerDown, ID: "e3"},
		{Op: marksheet.OpDelete, ID: "e1"},
		{Op: marksheet.OpUndo},
	})
	if err != nil {
		t.Fatalf("ApplyEdits() failed: %v", err)
	}

	doc, _ := got.Document()
	ids := make([]string, 0, len(doc.Elements))
	for _, el := range doc.Elements {
		ids = append(ids, el.ID)
	}
	assert.Equal(t, []string{"e1", "e3", "e2"}, ids)

	e1, _ := doc.Element("e1")
	assert.Equal(t, "Hello {{studentName}}", e1.Props.(*canvas.TextProps).Content)
	assert.Equal(t, 60.0, e1.X)
	assert.Equal(t, 70.0, e1.Y)

	e2, _ := doc.Element("e2")
	assert.Equal(t, 250.0, e2.Width)
	assert.Equal(t, 110.0, e2.Height)

	stored, err := fx.repo.GetTemplate(context.Background(), tpl.TemplateID)
	if err != nil {
		t.Fatalf("GetTemplate() failed: %v", err)
	}
	assert.Len(t, stored.Elements, 3)
	assert.Contains(t, stored.HTML, "Hello {{studentName}}")
}

func TestService_ApplyEdits_errors(t *testing.T) {
	fx := setup(t)
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID, testutil.Elements(canvas.KindText))

	tests := []struct {
		name      string
		ops       []marksheet.Operation
		wantField string
	}{
		{
			name:      "unknown op",
			ops:       []marksheet.Operation{{Op: "explode"}},
			wantField: "operations[0]",
		},
		{
			name: "unknown element",
			ops: []marksheet.Operation{
				{Op: marksheet.OpAdd, ID: "e2", Type: canvas.KindBox},
				{Op: marksheet.OpMove, ID: "nope", DX: 1},
			},
			wantField: "operations[1]",
		},
		{
			name:      "unknown type",
			ops:       []marksheet.Operation{{Op: marksheet.OpAdd, Type: "sticker"}},
			wantField: "operations[0]",
		},
		{
			name:      "duplicate id",
			ops:       []marksheet.Operation{{Op: marksheet.OpAdd, ID: "e1", Type: canvas.KindBox}},
			wantField: "operations[0]",
		},
		{
			name:      "read-only property",
			ops:       []marksheet.Operation{{Op: marksheet.OpUpdate, ID: "e1", Property: "type", Value: raw(t, "box")}},
			wantField: "operations[0]",
		},
		{
			name:      "bad handle",
			ops:       []marksheet.Operation{{Op: marksheet.OpResize, ID: "e1", Handle: canvas.Handle("up")}},
			wantField: "operations[0]",
		},
		{
			name:      "zero zoom",
			ops:       []marksheet.Operation{{Op: marksheet.OpZoom}},
			wantField: "operations[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.ApplyEdits(context.Background(), tpl.TemplateID, tt.ops)
			verr, ok := errors.Cause(err).(*core.ValidationError)
			if !ok {
				t.Fatalf("ApplyEdits() error = %v, want a validation error", err)
			}
			if assert.Len(t, verr.Fields, 1) {
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
			}

			stored, err := fx.repo.GetTemplate(context.Background(), tpl.TemplateID)
			if err != nil {
				t.Fatalf("GetTemplate() failed: %v", err)
			}
			assert.Len(t, stored.Elements, 1, "a failed batch must not be stored")
		})
	}
}

func TestService_Send(t *testing.T) {
	fx := setup(t)
	tpl := testutil.CreateTemplate(t, fx.repo, "tpl-1", "Term Report", testutil.ClassID,
		testutil.Elements(canvas.KindStudentName, canvas.KindResult))
	orphan := testutil.CreateTemplate(t, fx.repo, "tpl-2", "Blank", "", nil)

	t.Run("no class", func(t *testing.T) {
		_, err := fx.svc.Send(context.Background(), orphan.TemplateID, marksheet.SendRequest{})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Send() error = %v, want a validation error", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		n, err := fx.svc.Send(context.Background(), tpl.TemplateID, marksheet.SendRequest{TestID: testutil.TestID})
		if err != nil {
			t.Fatalf("Send() failed: %v", err)
		}
		// Brian has no guardian email
		assert.Equal(t, 2, n)
		if !assert.Len(t, emailsvc.SentMessages, 2) {
			return
		}

		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "joseph@example.com", msg.To[0].Address)
		assert.Equal(t, "Joseph Mwamba", msg.To[0].Name)
		assert.Equal(t, "Term 1 marksheet: Asha Mwamba", msg.Subject)
		assert.Contains(t, msg.TextContent, "Dear Joseph Mwamba")
		assert.Contains(t, msg.TextContent, "Total: 170 / 200")
		assert.Contains(t, msg.TextContent, "Result: PASS")
		if assert.Len(t, msg.Attachments, 1) {
			assert.Equal(t, "marksheet-01.html", msg.Attachments[0].Filename)
			assert.True(t, strings.HasPrefix(msg.Attachments[0].ContentType, "text/html"))
		}

		// Chidi sat no paper of Term 1
		assert.Equal(t, "ada@example.com", emailsvc.SentMessages[1].To[0].Address)
		assert.Contains(t, emailsvc.SentMessages[1].TextContent, "Result: FAIL")
	})
}
