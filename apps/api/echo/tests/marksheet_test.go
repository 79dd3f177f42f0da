package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/marksheet/core/canvas"
	"github.com/trezcool/marksheet/core/marksheet"
	emailsvc "github.com/trezcool/marksheet/services/email"
	testutil "github.com/trezcool/marksheet/tests"
)

const templatesPath = "/api/marksheet-templates"

type templateList struct {
	Templates []marksheet.Template `json:"templates"`
}

func templateNames(tpls []marksheet.Template) []string {
	names := make([]string, 0, len(tpls))
	for _, tpl := range tpls {
		names = append(names, tpl.TemplateName)
	}
	return names
}

func Test_marksheetApi_create(t *testing.T) {
	fx := setup(t)

	t.Run("valid template", func(t *testing.T) {
		body := marchallObj(t, marksheet.NewTemplate{
			ClassID:         testutil.ClassID,
			TemplateName:    "Term Report",
			InstitutionName: "Springfield High",
			Elements:        testutil.Elements(canvas.KindStudentName, canvas.KindGrade),
		})
		req, rec := newRequest(http.MethodPost, templatesPath, body)
		fx.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("create code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var tpl marksheet.Template
		decode(t, rec, &tpl)
		assert.NotEmpty(t, tpl.TemplateID)
		assert.Equal(t, testutil.ClassID, tpl.ClassID)
		assert.Len(t, tpl.Elements, 2)
		assert.Contains(t, tpl.HTML, "{{studentName}}")
		assert.Empty(t, tpl.Warnings)
	})

	tests := []httpTest{
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     templatesPath,
			body:     marchallObj(t, marksheet.NewTemplate{TemplateName: "   "}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"templateName": "this field cannot be blank"}),
		},
		{
			name:   "duplicate element ids",
			method: http.MethodPost,
			path:   templatesPath,
			body: marchallObj(t, marksheet.NewTemplate{
				TemplateName: "Twins",
				Elements: []canvas.Element{
					canvas.NewElement(canvas.KindText, "e1"),
					canvas.NewElement(canvas.KindHeading, "e1"),
				},
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     templatesPath,
			body:     []byte(`{"templateName": `),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			fx.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_marksheetApi_query(t *testing.T) {
	fx := setup(t)
	day := time.Date(2021, time.May, 1, 8, 0, 0, 0, time.UTC)
	testutil.CreateTemplate(t, fx.tplRepo, "tpl-a", "Annual Report", testutil.ClassID, nil, day)
	testutil.CreateTemplate(t, fx.tplRepo, "tpl-b", "Blank Sheet", testutil.OtherClass, nil, day.Add(time.Hour))
	testutil.CreateTemplate(t, fx.tplRepo, "tpl-c", "Class Report", testutil.ClassID, nil, day.Add(2*time.Hour))

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantNames []string
	}{
		{"latest first", templatesPath, http.StatusOK, []string{"Class Report", "Blank Sheet", "Annual Report"}},
		{"by name", templatesPath + "?ordering=templateName", http.StatusOK, []string{"Annual Report", "Blank Sheet", "Class Report"}},
		{"by class", templatesPath + "?classId=" + testutil.ClassID + "&ordering=-templateName", http.StatusOK, []string{"Class Report", "Annual Report"}},
		{"search", templatesPath + "?search=report&ordering=createdAt", http.StatusOK, []string{"Annual Report", "Class Report"}},
		{"no match", templatesPath + "?search=zzz", http.StatusOK, []string{}},
		{"unknown ordering", templatesPath + "?ordering=bogus", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			fx.app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("query code = %v; want %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantNames == nil {
				return
			}
			var list templateList
			decode(t, rec, &list)
			assert.NotNil(t, list.Templates)
			assert.Equal(t, tt.wantNames, templateNames(list.Templates))
		})
	}
}

func Test_marksheetApi_detail(t *testing.T) {
	fx := setup(t)
	tpl := testutil.CreateTemplate(t, fx.tplRepo, "tpl-1", "Term Report", testutil.ClassID,
		testutil.Elements(canvas.KindStudentName))
	notFound := marchallObj(t, httpErr{Error: marksheet.ErrNotFound.Error()})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, templatesPath+"/tpl-1")
		fx.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("retrieve code = %v; want %v", rec.Code, http.StatusOK)
		}
		var got marksheet.Template
		decode(t, rec, &got)
		assert.Equal(t, tpl.TemplateID, got.TemplateID)
		assert.Equal(t, tpl.HTML, got.HTML)
	})

	t.Run("export", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, templatesPath+"/tpl-1/export")
		fx.app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
		assert.Equal(t, tpl.HTML, rec.Body.String())
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, marksheet.UpdateTemplate{
			TemplateID: "tpl-1",
			NewTemplate: marksheet.NewTemplate{
				ClassID:      testutil.ClassID,
				TemplateName: "Renamed",
				Elements:     testutil.Elements(canvas.KindRollNumber),
			},
		})
		req, rec := newRequest(http.MethodPut, templatesPath, body)
		fx.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("update code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got marksheet.Template
		decode(t, rec, &got)
		assert.Equal(t, "Renamed", got.TemplateName)
		assert.Contains(t, got.HTML, "{{rollNumber}}")
		assert.True(t, got.CreatedAt.Equal(tpl.CreatedAt))
	})

	tests := []httpTest{
		{
			name:     "update without id",
			method:   http.MethodPut,
			path:     templatesPath,
			body:     marchallObj(t, marksheet.UpdateTemplate{NewTemplate: marksheet.NewTemplate{TemplateName: "X"}}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"templateId": "this field is required"}),
		},
		{
			name:     "unknown template",
			method:   http.MethodGet,
			path:     templatesPath + "/nope",
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "export unknown template",
			method:   http.MethodGet,
			path:     templatesPath + "/nope/export",
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     templatesPath + "/tpl-1",
			wantCode: http.StatusNoContent,
		},
		{
			name:     "deleted template",
			method:   http.MethodGet,
			path:     templatesPath + "/tpl-1",
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			fx.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_marksheetApi_preview(t *testing.T) {
	fx := setup(t)
	calc := canvas.NewElement(canvas.KindCalculated, "e4")
	calc.Props.(*canvas.CalcProps).Formula = "marks_maths + bonus"
	elements := append(testutil.Elements(canvas.KindStudentName, canvas.KindTotalMarks, canvas.KindGrade), calc)
	testutil.CreateTemplate(t, fx.tplRepo, "tpl-1", "Term Report", testutil.ClassID, elements)

	t.Run("student", func(t *testing.T) {
		path := templatesPath + "/tpl-1/preview?studentId=" + testutil.StudentA + "&testId=" + testutil.TestID
		req, rec := newRequest(http.MethodGet, path)
		fx.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("preview code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.NotEmpty(t, rec.Header().Get("X-Formula-Errors"))
		for _, s := range []string{"Student Name: Asha Mwamba", "Total: 170 / 200", "Grade: A"} {
			assert.Contains(t, rec.Body.String(), s)
		}
	})

	tests := []httpTest{
		{
			name:     "missing student",
			method:   http.MethodGet,
			path:     templatesPath + "/tpl-1/preview",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"studentId": "this field is required"}),
		},
		{
			name:     "unknown student",
			method:   http.MethodGet,
			path:     templatesPath + "/tpl-1/preview?studentId=nope",
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			fx.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_marksheetApi_edits(t *testing.T) {
	fx := setup(t)
	testutil.CreateTemplate(t, fx.tplRepo, "tpl-1", "Term Report", testutil.ClassID,
		testutil.Elements(canvas.KindStudentName, canvas.KindRollNumber))

	t.Run("valid operations", func(t *testing.T) {
		body := []byte(`{"operations": [
			{"op": "add", "type": "grade"},
			{"op": "delete", "id": "e1"}
		]}`)
		req, rec := newRequest(http.MethodPost, templatesPath+"/tpl-1/edits", body)
		fx.app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("edits code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got marksheet.Template
		decode(t, rec, &got)
		if assert.Len(t, got.Elements, 2) {
			assert.Equal(t, "e2", got.Elements[0].ID)
			assert.Equal(t, canvas.KindGrade, got.Elements[1].Type)
		}
		assert.NotContains(t, got.HTML, "{{studentName}}")
	})

	tests := []httpTest{
		{
			name:     "unknown element",
			method:   http.MethodPost,
			path:     templatesPath + "/tpl-1/edits",
			body:     []byte(`{"operations": [{"op": "move", "id": "e9", "dx": 5}]}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown template",
			method:   http.MethodPost,
			path:     templatesPath + "/nope/edits",
			body:     []byte(`{"operations": []}`),
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			fx.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_marksheetApi_send(t *testing.T) {
	fx := setup(t)
	testutil.CreateTemplate(t, fx.tplRepo, "tpl-1", "Term Report", testutil.ClassID,
		testutil.Elements(canvas.KindStudentName, canvas.KindTotalMarks))
	testutil.CreateTemplate(t, fx.tplRepo, "tpl-2", "Loose Sheet", "", nil)

	tests := []httpTest{
		{
			name:     "class template",
			method:   http.MethodPost,
			path:     templatesPath + "/tpl-1/send",
			body:     marchallObj(t, marksheet.SendRequest{TestID: testutil.TestID}),
			wantCode: http.StatusAccepted,
			wantData: marchallObj(t, echo.Map{"queued": 2}),
		},
		{
			name:     "template without class",
			method:   http.MethodPost,
			path:     templatesPath + "/tpl-2/send",
			body:     marchallObj(t, marksheet.SendRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"classId": marksheet.ErrNoClass.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			fx.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Len(t, emailsvc.SentMessages, 2)
}
