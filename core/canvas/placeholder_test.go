package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	ctx := ResolveContext{
		KeySet: map[string]string{"name": "studentName", "roll": "missingField"},
		Record: map[string]interface{}{
			"studentName": "Asha Mwamba",
			"name":        "shadowed",
			"rollNumber":  12,
			"percentage":  87.5,
			"remarks":     nil,
			"nested":      "{{studentName}}",
		},
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "direct match", text: "Name: {{studentName}}", want: "Name: Asha Mwamba"},
		{name: "key set first", text: "{{name}}", want: "Asha Mwamba"},
		{name: "key set miss falls back", text: "{{roll}}", want: "{{roll}}"},
		{name: "numbers", text: "{{rollNumber}} / {{percentage}}%", want: "12 / 87.5%"},
		{name: "missing key", text: "Grade: {{grade}}", want: "Grade: {{grade}}"},
		{name: "nil value", text: "{{remarks}}", want: "{{remarks}}"},
		{name: "case sensitive", text: "{{StudentName}}", want: "{{StudentName}}"},
		{name: "not an identifier", text: "{{ studentName }} {{a-b}}", want: "{{ studentName }} {{a-b}}"},
		{name: "extra braces", text: "{{{studentName}}}", want: "{Asha Mwamba}"},
		{name: "unterminated", text: "{{studentName", want: "{{studentName"},
		{name: "single pass", text: "{{nested}}", want: "{{studentName}}"},
		{name: "no tokens", text: "plain", want: "plain"},
		{name: "empty", text: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.text, ctx); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_roundTrip(t *testing.T) {
	text := "{{studentName}} ({{className}}) scored {{total}} of {{maxTotal}}"
	assert.Equal(t, text, Resolve(text, ResolveContext{}), "resolving against nothing changed the text")

	ctx := ResolveContext{Record: map[string]interface{}{
		"studentName": "Asha", "className": "Form 2", "total": 450, "maxTotal": 500,
	}}
	got := Resolve(text, ctx)
	assert.Equal(t, "Asha (Form 2) scored 450 of 500", got)
	assert.Empty(t, Placeholders(got))
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{a}} {{b}} {{a}} {{ c }} {{d_1}}")
	assert.Equal(t, []string{"a", "b", "d_1"}, got)
	assert.Nil(t, Placeholders("nothing here"))
}

func TestDocumentPlaceholders(t *testing.T) {
	doc := NewDocument("Report")
	doc.InstitutionName = "{{schoolName}}"
	doc.Elements = []Element{
		NewElement(KindStudentName, "a"),
		NewElement(KindPhoto, "b"),
		NewElement(KindBox, "c"),
	}
	tbl := NewElement(KindSubjectsTable, "d")
	tbl.Props.(*SubjectsTableProps).Subjects = []SubjectColumn{{ID: "1", Name: "Maths", MaxMarks: 100, MarksPlaceholder: "{{marks_maths}}"}}
	doc.Elements = append(doc.Elements, tbl)

	assert.Equal(t, []string{"schoolName", "studentName", "photo", "marks_maths"}, DocumentPlaceholders(doc))

	resolved := ResolveDocument(doc, ResolveContext{Record: map[string]interface{}{"studentName": "Asha", "marks_maths": 71}})
	assert.Equal(t, "Student Name: Asha", resolved.Elements[0].Props.(*TextProps).Content)
	assert.Equal(t, "71", resolved.Elements[3].Props.(*SubjectsTableProps).Subjects[0].MarksPlaceholder)
	assert.Equal(t, "Student Name: {{studentName}}", doc.Elements[0].Props.(*TextProps).Content, "input was mutated")
}
