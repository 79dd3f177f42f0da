package canvas

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	els := []Element{
		placed(KindText, "footer", Rect{0, 700, 100, 40}),   // mid 720
		placed(KindText, "header2", Rect{0, 100, 100, 60}),  // mid 130
		placed(KindText, "body", Rect{0, 190, 100, 20}),     // mid 200, on the boundary
		placed(KindText, "header1", Rect{0, 10, 100, 20}),   // mid 20
		placed(KindText, "edge", Rect{0, 580, 100, 40}),     // mid 600
		placed(KindText, "header1b", Rect{50, 10, 100, 20}), // mid 20, after header1 in z-order
	}
	ids := func(sec Section) []string {
		out := []string{}
		for _, el := range sec.Elements {
			out = append(out, el.ID)
		}
		return out
	}

	s := Partition(els, 800, DefaultSectionStyles())
	assert.Equal(t, []string{"header1", "header1b", "header2"}, ids(s.Header))
	assert.Equal(t, []string{"body"}, ids(s.Body))
	assert.Equal(t, []string{"edge", "footer"}, ids(s.Footer))
	assert.Equal(t, len(els), s.Len())

	again := Partition(s.Combine(), 800, DefaultSectionStyles())
	assert.Equal(t, s, again, "partition is not idempotent")

	tall := Partition(els, 1600, DefaultSectionStyles())
	assert.Len(t, tall.Header.Elements, 4)
	assert.Equal(t, []string{"edge", "footer"}, ids(tall.Body))
	assert.Empty(t, tall.Footer.Elements)
}

func TestSaveLoad(t *testing.T) {
	doc := NewDocument("Term 1")
	doc.InstitutionName = "Springfield High"
	doc.Subtitle = "Annual examination"
	doc.Background.Color = "#fafafa"
	doc.Elements = []Element{
		placed(KindHeading, "h", Rect{100, 20, 400, 40}),
		placed(KindSubjectsTable, "subjects", Rect{50, 220, 500, 240}),
		placed(KindSignature, "sig", Rect{400, 700, 150, 50}),
		placed(KindBox, "frame", Rect{0, 0, 600, 800}),
	}
	subjects := []SubjectColumn{{ID: "s1", Name: "Maths", MaxMarks: 100, MarksPlaceholder: "{{marks_maths}}"}}
	doc.Elements[1].Props.(*SubjectsTableProps).Subjects = subjects

	saved, err := Save(doc)
	assert.NoError(t, err)
	assert.Equal(t, subjects, saved.Subjects)
	assert.Equal(t, "#fafafa", saved.CanvasBackgroundColor)
	assert.Len(t, saved.Elements, 4)
	if assert.NotNil(t, saved.Sections) {
		assert.Equal(t, 4, saved.Sections.Len())
	}
	assert.Contains(t, saved.HTML, `data-id="frame"`)

	t.Run("in memory", func(t *testing.T) {
		got, selected := Load(saved)
		assert.Equal(t, doc, got)
		assert.Equal(t, "h", selected)
	})

	t.Run("through json", func(t *testing.T) {
		data, err := json.Marshal(saved)
		assert.NoError(t, err)
		var decoded SavedDocument
		assert.NoError(t, json.Unmarshal(data, &decoded))

		got, _ := Load(decoded)
		assert.Equal(t, doc, got)
	})

	t.Run("sections only", func(t *testing.T) {
		sectioned := saved
		sectioned.Elements = nil
		got, selected := Load(sectioned)
		assert.Equal(t, saved.Sections.Combine(), got.Elements)
		var ids []string
		for _, el := range got.Elements {
			ids = append(ids, el.ID)
		}
		assert.Equal(t, []string{"h", "subjects", "frame", "sig"}, ids)
		assert.Equal(t, "h", selected)
	})

	t.Run("flat only", func(t *testing.T) {
		legacy := SavedDocument{TemplateName: "Old", Elements: saved.Elements}
		got, selected := Load(legacy)
		assert.Equal(t, doc.Elements, got.Elements)
		assert.Equal(t, DefaultCanvas, got.Canvas)
		assert.Equal(t, DefaultSectionStyles(), got.Styles)
		assert.Equal(t, "h", selected)
	})

	t.Run("empty", func(t *testing.T) {
		got, selected := Load(SavedDocument{TemplateName: "Blank"})
		assert.Empty(t, got.Elements)
		assert.Empty(t, selected)
	})
}

func TestSave_duplicateIDs(t *testing.T) {
	doc := NewDocument("Dup")
	doc.Elements = []Element{NewElement(KindText, "a"), NewElement(KindBox, "a")}
	_, err := Save(doc)
	assert.Error(t, err)
}

func TestExportHTML(t *testing.T) {
	doc := NewDocument("Export")
	doc.Elements = []Element{
		placed(KindText, "evil", Rect{10, 10, 200, 30}),
		placed(KindStudentName, "name", Rect{10, 50, 200, 30}),
		placed(KindTable, "tbl", Rect{10, 100, 300, 90}),
		placed(KindPhoto, "photo", Rect{400, 10, 100, 120}),
		placed(KindCalculated, "avg", Rect{10, 300, 200, 30}),
		placed(KindCircle, "dot", Rect{10, 400, 50, 50}),
	}
	doc.Elements[0].Props.(*TextProps).Content = `<script>alert("x")</script>`
	doc.Elements[0].Props.(*TextProps).Color = `red;background:url(javascript:alert(1))`
	doc.Elements[2].Props.(*TableProps).SetCell(0, 0, "<b>cell</b>")

	html, err := ExportHTML(doc)
	assert.NoError(t, err)

	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;b&gt;cell&lt;/b&gt;")
	assert.NotContains(t, html, "javascript")
	assert.Contains(t, html, "Student Name: {{studentName}}", "placeholders should stay literal")
	assert.Contains(t, html, `data-placeholder="{{photo}}"`)
	assert.Contains(t, html, `data-formula="total / maxTotal * 100"`)
	assert.Contains(t, html, "border-radius:50%")
	assert.Contains(t, html, "left:400px;top:10px;width:100px;height:120px;z-index:4;")

	// z-order
	assert.True(t, strings.Index(html, `data-id="evil"`) < strings.Index(html, `data-id="dot"`))
}

func TestRender(t *testing.T) {
	doc := NewDocument("Preview")
	doc.Elements = []Element{
		placed(KindStudentName, "name", Rect{10, 50, 200, 30}),
		placed(KindCalculated, "pct", Rect{10, 100, 200, 30}),
		placed(KindCalculated, "broken", Rect{10, 150, 200, 30}),
		placed(KindPhoto, "photo", Rect{400, 10, 100, 120}),
	}
	doc.Elements[2].Props.(*CalcProps).Formula = "total / bonus"

	rc := RenderContext{
		Resolve: ResolveContext{Record: map[string]interface{}{
			"studentName": "Asha <Mwamba>",
			"photo":       "https://cdn.example.com/asha.png",
		}},
		Vars: map[string]float64{"total": 450, "maxTotal": 500},
	}
	r, err := Render(doc, rc)
	assert.NoError(t, err)

	assert.Contains(t, r.HTML, "Student Name: Asha &lt;Mwamba&gt;")
	assert.Contains(t, r.HTML, `<span class="value">90.00</span>`)
	assert.Contains(t, r.HTML, `<span class="value">#ERR</span>`)
	assert.Contains(t, r.HTML, `src="https://cdn.example.com/asha.png"`)
	if assert.Len(t, r.FormulaErrors, 1) {
		assert.IsType(t, &FormulaError{}, r.FormulaErrors[0])
	}
}
