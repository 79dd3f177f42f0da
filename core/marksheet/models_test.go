package marksheet

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
)

func newValidator() *validator.Validate {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func TestNewTemplate_Validate(t *testing.T) {
	validate := newValidator()
	els := []canvas.Element{canvas.NewElement(canvas.KindText, "e1"), canvas.NewElement(canvas.KindBox, "e2")}
	dup := []canvas.Element{canvas.NewElement(canvas.KindText, "e1"), canvas.NewElement(canvas.KindBox, "e1")}

	tests := []struct {
		name      string
		nt        NewTemplate
		wantField string // empty when valid
	}{
		{name: "valid", nt: NewTemplate{TemplateName: "Term Report", Elements: els, CanvasBackgroundColor: "#fafafa"}},
		{name: "blank name", nt: NewTemplate{TemplateName: "   "}, wantField: "templateName"},
		{name: "bad color", nt: NewTemplate{TemplateName: "T", CanvasBackgroundColor: "red"}, wantField: "canvasBackgroundColor"},
		{name: "huge canvas", nt: NewTemplate{TemplateName: "T", CanvasWidth: 6000}, wantField: "canvasWidth"},
		{name: "duplicate ids", nt: NewTemplate{TemplateName: "T", Elements: dup}, wantField: "elements"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nt.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			switch e := err.(type) {
			case validator.ValidationErrors:
				if assert.Len(t, e, 1) {
					assert.Equal(t, tt.wantField, e[0].Field())
				}
			case *core.ValidationError:
				if assert.Len(t, e.Fields, 1) {
					assert.Equal(t, tt.wantField, e.Fields[0].Field)
				}
			default:
				t.Errorf("Validate() error = %v, want an error on %s", err, tt.wantField)
			}
		})
	}
}

func TestUpdateTemplate_Validate(t *testing.T) {
	validate := newValidator()
	err := UpdateTemplate{NewTemplate: NewTemplate{TemplateName: "T"}}.Validate(validate)
	if errs, ok := err.(validator.ValidationErrors); !ok || errs[0].Field() != "templateId" {
		t.Errorf("Validate() error = %v, want templateId required", err)
	}
}

func TestValidateOrdering(t *testing.T) {
	tests := []struct {
		ordering []core.DBOrdering
		wantErr  bool
	}{
		{ordering: nil},
		{ordering: []core.DBOrdering{{Field: OrderByTemplateName}, {Field: OrderByUpdatedAt, Ascending: true}}},
		{ordering: []core.DBOrdering{{Field: "templatename"}}, wantErr: true},
	}
	for _, tt := range tests {
		if err := ValidateOrdering(tt.ordering); (err != nil) != tt.wantErr {
			t.Errorf("ValidateOrdering(%v) error = %v, wantErr %v", tt.ordering, err, tt.wantErr)
		}
	}
}

func TestDiagnose(t *testing.T) {
	doc := canvas.NewDocument("{{termName}} report")
	doc.Elements = []canvas.Element{
		canvas.NewElement(canvas.KindStudentName, "e1"),
		canvas.NewElement(canvas.KindGrade, "e2"),
		canvas.NewElement(canvas.KindPercentage, "e3"),
	}
	known := []string{"studentName", "grade", "testName"}

	got := Diagnose(doc, known)
	want := []Warning{
		{Placeholder: "termName", Suggestion: "testName", Message: "unknown placeholder {{termName}}, did you mean {{testName}}?"},
		{Placeholder: "percentage", Message: "unknown placeholder {{percentage}}"},
	}
	assert.Equal(t, want, got)

	assert.Empty(t, Diagnose(doc, append(known, "termName", "percentage")))
}

func TestApplyOperations_zoom(t *testing.T) {
	doc := canvas.NewDocument("T")
	doc.Elements = []canvas.Element{canvas.NewElement(canvas.KindBox, "e1")}
	ed := canvas.NewEditor(doc)

	// moves are in canvas units whatever the zoom
	err := ApplyOperations(ed, []Operation{
		{Op: OpZoom, Zoom: 200},
		{Op: OpMove, ID: "e1", DX: 30, DY: 40},
	})
	if err != nil {
		t.Fatalf("ApplyOperations() failed: %v", err)
	}
	el, _ := ed.Document().Element("e1")
	assert.Equal(t, 80.0, el.X)
	assert.Equal(t, 90.0, el.Y)
	assert.Equal(t, 200.0, ed.Zoom())
}

func TestApplyOperations_key(t *testing.T) {
	doc := canvas.NewDocument("T")
	doc.Elements = []canvas.Element{canvas.NewElement(canvas.KindBox, "e1"), canvas.NewElement(canvas.KindText, "e2")}
	ed := canvas.NewEditor(doc)

	err := ApplyOperations(ed, []Operation{
		{Op: OpKey, ID: "e1", Key: &canvas.Key{Key: "Delete"}},
	})
	if err != nil {
		t.Fatalf("ApplyOperations() failed: %v", err)
	}
	_, ok := ed.Document().Element("e1")
	assert.False(t, ok)

	err = ApplyOperations(ed, []Operation{{Op: OpKey}})
	if opErr, ok := err.(*OperationError); !ok || opErr.Index != 0 {
		t.Errorf("ApplyOperations() error = %v, want an OperationError at 0", err)
	}
}
