// Package canvas implements the marksheet template builder: the element model, the snapshot
// history, the pointer/keyboard interaction engine, placeholder resolution and the template
// serializers (persisted document and static HTML).
//
// Everything in this package is single-goroutine and synchronous. Documents are values:
// operations return new Documents and never mutate their input.
package canvas

import (
	"bytes"
	"encoding/json"
)

// Kind is the element type tag.
type Kind string

const (
	KindText          Kind = "text"
	KindHeading       Kind = "heading"
	KindInputField    Kind = "input_field"
	KindDateField     Kind = "date_field"
	KindStudentName   Kind = "student_name"
	KindRollNumber    Kind = "roll_number"
	KindClassName     Kind = "class_name"
	KindTotalMarks    Kind = "total_marks"
	KindPercentage    Kind = "percentage"
	KindGrade         Kind = "grade"
	KindResult        Kind = "result"
	KindRemarks       Kind = "remarks"
	KindSignature     Kind = "signature"
	KindCalculated    Kind = "calculated_field"
	KindTable         Kind = "table"
	KindSubjectsTable Kind = "subjects_table"
	KindPhoto         Kind = "photo"
	KindLogo          Kind = "logo"
	KindBox           Kind = "box"
	KindLine          Kind = "line"
	KindCircle        Kind = "circle"
)

// Kinds lists every element kind in palette order.
var Kinds = []Kind{
	KindText, KindHeading, KindInputField, KindDateField,
	KindStudentName, KindRollNumber, KindClassName,
	KindTotalMarks, KindPercentage, KindGrade, KindResult, KindRemarks, KindSignature,
	KindCalculated, KindTable, KindSubjectsTable,
	KindPhoto, KindLogo, KindBox, KindLine, KindCircle,
}

// Known reports whether k is one of Kinds.
func (k Kind) Known() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Props is the type-specific payload of an Element.
// The set of implementations is closed: *TextProps, *CalcProps, *TableProps,
// *SubjectsTableProps, *ImageProps and *ShapeProps.
type Props interface {
	clone() Props
}

// Typography is shared by the text-bearing payloads.
type Typography struct {
	FontSize   float64 `json:"fontSize"`
	FontWeight string  `json:"fontWeight"`
	FontFamily string  `json:"fontFamily"`
	FontStyle  string  `json:"fontStyle,omitempty"`
	Color      string  `json:"color"`
	TextAlign  string  `json:"textAlign,omitempty"`
}

// TextProps backs every plain text kind (text, heading, fields, remarks, signature...).
type TextProps struct {
	Content string `json:"content"`
	Typography
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	BorderColor     string  `json:"borderColor,omitempty"`
	BorderWidth     float64 `json:"borderWidth,omitempty"`
}

func (p *TextProps) clone() Props { c := *p; return &c }

// CalcProps is a calculated field: a label followed by the value of Formula.
type CalcProps struct {
	Label    string `json:"label"`
	Formula  string `json:"formula"`
	Decimals int    `json:"decimals"`
	Typography
}

func (p *CalcProps) clone() Props { c := *p; return &c }

// TableProps is a free table. Data always holds Rows rows of Cols cells.
type TableProps struct {
	Rows            int        `json:"rows"`
	Cols            int        `json:"cols"`
	Headers         []string   `json:"headers"`
	Data            [][]string `json:"data"`
	CellPadding     float64    `json:"cellPadding"`
	BorderColor     string     `json:"borderColor"`
	HeaderBgColor   string     `json:"headerBgColor"`
	HeaderTextColor string     `json:"headerTextColor"`
	FontSize        float64    `json:"fontSize"`
}

func (p *TableProps) clone() Props {
	c := *p
	c.Headers = cloneStrings(p.Headers)
	if p.Data != nil {
		c.Data = make([][]string, len(p.Data))
		for i, row := range p.Data {
			c.Data[i] = cloneStrings(row)
		}
	}
	return &c
}

// SubjectColumn is one row of a subjects table.
type SubjectColumn struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	MaxMarks         float64 `json:"maxMarks"`
	MarksPlaceholder string  `json:"marksPlaceholder"`
}

// SubjectsTableProps lists the subjects of a class with their marks placeholders.
type SubjectsTableProps struct {
	Subjects        []SubjectColumn `json:"subjects"`
	SubjectHeader   string          `json:"subjectHeader"`
	MaxMarksHeader  string          `json:"maxMarksHeader"`
	MarksHeader     string          `json:"marksHeader"`
	CellPadding     float64         `json:"cellPadding"`
	BorderColor     string          `json:"borderColor"`
	HeaderBgColor   string          `json:"headerBgColor"`
	HeaderTextColor string          `json:"headerTextColor"`
	FontSize        float64         `json:"fontSize"`
}

func (p *SubjectsTableProps) clone() Props {
	c := *p
	if p.Subjects != nil {
		c.Subjects = make([]SubjectColumn, len(p.Subjects))
		copy(c.Subjects, p.Subjects)
	}
	return &c
}

// cloneStrings copies s, keeping nil and empty slices distinct.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

// ImageProps backs photo and logo elements. Src is a data-URL, an http(s) URL or a placeholder.
type ImageProps struct {
	Src             string  `json:"src"`
	PlaceholderText string  `json:"placeholderText"`
	ObjectFit       string  `json:"objectFit,omitempty"`
	BorderRadius    float64 `json:"borderRadius,omitempty"`
	BorderColor     string  `json:"borderColor,omitempty"`
	BorderWidth     float64 `json:"borderWidth,omitempty"`
}

func (p *ImageProps) clone() Props { c := *p; return &c }

// ShapeProps backs box, line and circle elements.
type ShapeProps struct {
	FillColor    string  `json:"fillColor"`
	BorderColor  string  `json:"borderColor"`
	BorderWidth  float64 `json:"borderWidth"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
}

func (p *ShapeProps) clone() Props { c := *p; return &c }

// Rect is an element's position and size in canvas units.
type Rect struct {
	X, Y, Width, Height float64
}

// Element is one positioned object on the template canvas.
// Its z-order is its index in Document.Elements.
type Element struct {
	ID     string
	Type   Kind
	X      float64
	Y      float64
	Width  float64
	Height float64
	Props  Props
}

func (e Element) Rect() Rect {
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

func (e *Element) setRect(r Rect) {
	e.X, e.Y, e.Width, e.Height = r.X, r.Y, r.Width, r.Height
}

// MidY is the vertical midpoint used for section partitioning.
func (e Element) MidY() float64 {
	return e.Y + e.Height/2
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	if e.Props != nil {
		e.Props = e.Props.clone()
	}
	return e
}

// MapText returns a copy of e with fn applied to every user-authored text it carries
// (content, labels, table cells, subject names and marks placeholders, image sources).
func (e Element) MapText(fn func(string) string) Element {
	e = e.Clone()
	switch p := e.Props.(type) {
	case *TextProps:
		p.Content = fn(p.Content)
	case *CalcProps:
		p.Label = fn(p.Label)
	case *TableProps:
		for i := range p.Headers {
			p.Headers[i] = fn(p.Headers[i])
		}
		for _, row := range p.Data {
			for j := range row {
				row[j] = fn(row[j])
			}
		}
	case *SubjectsTableProps:
		for i := range p.Subjects {
			p.Subjects[i].Name = fn(p.Subjects[i].Name)
			p.Subjects[i].MarksPlaceholder = fn(p.Subjects[i].MarksPlaceholder)
		}
	case *ImageProps:
		p.Src = fn(p.Src)
		p.PlaceholderText = fn(p.PlaceholderText)
	case *ShapeProps:
	}
	return e
}

// Texts lists the user-authored texts of e, in the same order MapText visits them.
func (e Element) Texts() []string {
	var texts []string
	e.MapText(func(s string) string {
		texts = append(texts, s)
		return s
	})
	return texts
}

// newProps returns the zero payload for kind.
func newProps(kind Kind) Props {
	switch kind {
	case KindCalculated:
		return new(CalcProps)
	case KindTable:
		return new(TableProps)
	case KindSubjectsTable:
		return new(SubjectsTableProps)
	case KindPhoto, KindLogo:
		return new(ImageProps)
	case KindBox, KindLine, KindCircle:
		return new(ShapeProps)
	default:
		return new(TextProps)
	}
}

type elementBase struct {
	ID     string  `json:"id"`
	Type   Kind    `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MarshalJSON writes the flat form used by the builder: base and payload fields in one object.
func (e Element) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(elementBase{ID: e.ID, Type: e.Type, X: e.X, Y: e.Y, Width: e.Width, Height: e.Height})
	if err != nil {
		return nil, err
	}
	if e.Props == nil {
		return base, nil
	}
	props, err := json.Marshal(e.Props)
	if err != nil {
		return nil, err
	}
	if len(props) <= 2 { // "{}"
		return base, nil
	}
	buf := make([]byte, 0, len(base)+len(props))
	buf = append(buf, base[:len(base)-1]...)
	buf = append(buf, ',')
	buf = append(buf, props[1:]...)
	return buf, nil
}

// UnmarshalJSON reads the flat form. Unknown kinds decode as text elements.
func (e *Element) UnmarshalJSON(data []byte) error {
	var base elementBase
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	if !base.Type.Known() {
		base.Type = KindText
	}
	props := newProps(base.Type)
	if err := json.Unmarshal(data, props); err != nil {
		return err
	}
	normalizeProps(props)

	*e = Element{
		ID:     base.ID,
		Type:   base.Type,
		X:      base.X,
		Y:      base.Y,
		Width:  base.Width,
		Height: base.Height,
		Props:  props,
	}
	return nil
}

// decodeStrict decodes data into v, rejecting fields v does not declare.
func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func normalizeProps(p Props) {
	if t, ok := p.(*TableProps); ok {
		t.Resize(t.Rows, t.Cols)
	}
}
