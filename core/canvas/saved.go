package canvas

import "github.com/pkg/errors"

// SavedDocument is the persisted form of a template, as exchanged with the builder.
// Elements is the flat list older clients read; Sections is the structured grouping.
type SavedDocument struct {
	TemplateID            string          `json:"templateId"`
	TemplateName          string          `json:"templateName"`
	InstitutionName       string          `json:"institutionName"`
	Subtitle              string          `json:"subtitle"`
	Elements              []Element       `json:"elements"`
	Sections              *Sections       `json:"sections,omitempty"`
	Subjects              []SubjectColumn `json:"subjects"`
	Logo                  string          `json:"logo,omitempty"`
	CanvasBackgroundColor string          `json:"canvasBackgroundColor,omitempty"`
	CanvasBackgroundImage string          `json:"canvasBackgroundImage,omitempty"`
	CanvasWidth           float64         `json:"canvasWidth,omitempty"`
	CanvasHeight          float64         `json:"canvasHeight,omitempty"`
	HTML                  string          `json:"html"`
}

// Save builds the persisted form of doc: flat and sectioned elements, the subjects of its
// subjects table, background settings and the exported HTML.
func Save(doc Document) (SavedDocument, error) {
	if doc.Canvas.Width <= 0 || doc.Canvas.Height <= 0 {
		doc.Canvas = DefaultCanvas
	}
	if err := CheckIDs(doc.Elements); err != nil {
		return SavedDocument{}, err
	}
	html, err := ExportHTML(doc)
	if err != nil {
		return SavedDocument{}, errors.Wrap(err, "exporting html")
	}

	doc = doc.Clone()
	sections := Partition(doc.Elements, doc.Canvas.Height, doc.Styles)
	elements := doc.Elements
	if elements == nil {
		elements = []Element{}
	}
	return SavedDocument{
		TemplateName:          doc.TemplateName,
		InstitutionName:       doc.InstitutionName,
		Subtitle:              doc.Subtitle,
		Elements:              elements,
		Sections:              &sections,
		Subjects:              Subjects(doc),
		Logo:                  doc.Logo,
		CanvasBackgroundColor: doc.Background.Color,
		CanvasBackgroundImage: doc.Background.Image,
		CanvasWidth:           doc.Canvas.Width,
		CanvasHeight:          doc.Canvas.Height,
		HTML:                  html,
	}, nil
}

// Load rebuilds a Document from its persisted form and returns it along with the id of the
// element to select (the first one, if any). The flat element list wins when present since
// it carries the z-order; documents stored with sections only are flattened.
func Load(saved SavedDocument) (Document, string) {
	doc := NewDocument(saved.TemplateName)
	doc.InstitutionName = saved.InstitutionName
	doc.Subtitle = saved.Subtitle
	doc.Logo = saved.Logo
	if saved.CanvasBackgroundColor != "" {
		doc.Background.Color = saved.CanvasBackgroundColor
	}
	doc.Background.Image = saved.CanvasBackgroundImage
	if saved.CanvasWidth > 0 && saved.CanvasHeight > 0 {
		doc.Canvas = Canvas{Width: saved.CanvasWidth, Height: saved.CanvasHeight}
	}

	switch {
	case len(saved.Elements) > 0:
		doc.Elements = cloneElements(saved.Elements)
	case saved.Sections != nil:
		doc.Elements = saved.Sections.Combine()
	}
	if saved.Sections != nil {
		doc.Styles = saved.Sections.Styles()
	}

	var selected string
	if len(doc.Elements) > 0 {
		selected = doc.Elements[0].ID
	}
	return doc, selected
}

// Subjects returns the subjects of the first subjects table in doc.
func Subjects(doc Document) []SubjectColumn {
	for _, el := range doc.Elements {
		if p, ok := el.Props.(*SubjectsTableProps); ok {
			subjects := make([]SubjectColumn, len(p.Subjects))
			copy(subjects, p.Subjects)
			return subjects
		}
	}
	return []SubjectColumn{}
}

func cloneElements(elements []Element) []Element {
	els := make([]Element, len(elements))
	for i, el := range elements {
		els[i] = el.Clone()
	}
	return els
}

// Clone returns a deep copy of saved.
func (saved SavedDocument) Clone() SavedDocument {
	if saved.Elements != nil {
		saved.Elements = cloneElements(saved.Elements)
	}
	if saved.Sections != nil {
		s := *saved.Sections
		for _, sec := range []*Section{&s.Header, &s.Body, &s.Footer} {
			if sec.Elements != nil {
				sec.Elements = cloneElements(sec.Elements)
			}
		}
		saved.Sections = &s
	}
	if saved.Subjects != nil {
		saved.Subjects = append([]SubjectColumn{}, saved.Subjects...)
	}
	return saved
}
