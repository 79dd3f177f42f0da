package canvas

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// DefaultCanvas is the A4-like page every builder document starts with.
var DefaultCanvas = Canvas{Width: 600, Height: 800}

// dragMargin keeps a dragged element's origin this far inside the right and bottom edges.
const dragMargin = 50

// ErrDuplicateID is returned when an element id is already used in the document.
var ErrDuplicateID = errors.New("duplicate element id")

// Canvas is the page size in canvas units.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MaxOrigin is the largest position a dragged element may take; pages smaller than the
// margin pin elements to the origin.
func (c Canvas) MaxOrigin() (float64, float64) {
	return math.Max(0, c.Width-dragMargin), math.Max(0, c.Height-dragMargin)
}

type Background struct {
	Color string `json:"color"`
	Image string `json:"image,omitempty"`
}

// Document is the full editable state of a template; it is the unit of undo/redo
// and of the "last saved" comparison.
type Document struct {
	Elements        []Element     `json:"elements"`
	TemplateName    string        `json:"templateName"`
	InstitutionName string        `json:"institutionName"`
	Subtitle        string        `json:"subtitle"`
	Logo            string        `json:"logo,omitempty"`
	Canvas          Canvas        `json:"canvas"`
	Background      Background    `json:"background"`
	Styles          SectionStyles `json:"styles"`
}

// NewDocument returns an empty document on the default canvas.
func NewDocument(templateName string) Document {
	return Document{
		Elements:     []Element{},
		TemplateName: templateName,
		Canvas:       DefaultCanvas,
		Background:   Background{Color: "#ffffff"},
		Styles:       DefaultSectionStyles(),
	}
}

// Clone returns a deep copy of doc.
func (doc Document) Clone() Document {
	if doc.Elements != nil {
		els := make([]Element, len(doc.Elements))
		for i, el := range doc.Elements {
			els[i] = el.Clone()
		}
		doc.Elements = els
	}
	return doc
}

// Index returns the z-order index of the element with the given id, or -1.
func (doc Document) Index(id string) int {
	for i, el := range doc.Elements {
		if el.ID == id {
			return i
		}
	}
	return -1
}

// Element returns the element with the given id.
func (doc Document) Element(id string) (Element, bool) {
	if i := doc.Index(id); i >= 0 {
		return doc.Elements[i], true
	}
	return Element{}, false
}

// CheckIDs reports the first empty or duplicated element id.
func CheckIDs(elements []Element) error {
	seen := make(map[string]struct{}, len(elements))
	for i, el := range elements {
		if el.ID == "" {
			return errors.Errorf("element %d has no id", i)
		}
		if _, ok := seen[el.ID]; ok {
			return errors.Wrap(ErrDuplicateID, el.ID)
		}
		seen[el.ID] = struct{}{}
	}
	return nil
}

// AddElement appends el on top of the z-order.
func AddElement(doc Document, el Element) (Document, error) {
	if el.ID == "" {
		el.ID = NewID()
	}
	if doc.Index(el.ID) >= 0 {
		return doc, errors.Wrap(ErrDuplicateID, el.ID)
	}
	doc = doc.Clone()
	doc.Elements = append(doc.Elements, el.Clone())
	return doc, nil
}

// RemoveElement drops the element with the given id; unknown ids are a no-op.
func RemoveElement(doc Document, id string) Document {
	i := doc.Index(id)
	if i < 0 {
		return doc
	}
	doc = doc.Clone()
	doc.Elements = append(doc.Elements[:i], doc.Elements[i+1:]...)
	return doc
}

// MoveLayer swaps the element with its neighbour in z-order: towards the top when up is
// true. It is a no-op at the array bounds and for unknown ids.
func MoveLayer(doc Document, id string, up bool) Document {
	i := doc.Index(id)
	if i < 0 {
		return doc
	}
	j := i - 1
	if up {
		j = i + 1
	}
	if j < 0 || j >= len(doc.Elements) {
		return doc
	}
	doc = doc.Clone()
	doc.Elements[i], doc.Elements[j] = doc.Elements[j], doc.Elements[i]
	return doc
}

// PropertyError reports a property patch that cannot be applied.
type PropertyError struct {
	ElementID string
	Property  string
	Err       error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("element %s: property %q: %v", e.ElementID, e.Property, e.Err)
}

var errReadOnly = errors.New("read-only property")

// UpdateElement replaces exactly one property on the element with the given id, leaving
// every other property and element untouched. Base properties are x, y, width and height;
// payload properties use their JSON names. Unknown ids are a no-op.
func UpdateElement(doc Document, id, property string, value interface{}) (Document, error) {
	i := doc.Index(id)
	if i < 0 {
		return doc, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return doc, &PropertyError{ElementID: id, Property: property, Err: err}
	}

	el := doc.Elements[i].Clone()
	switch property {
	case "id", "type":
		return doc, &PropertyError{ElementID: id, Property: property, Err: errReadOnly}
	case "x", "y", "width", "height":
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return doc, &PropertyError{ElementID: id, Property: property, Err: err}
		}
		switch property {
		case "x":
			el.X = f
		case "y":
			el.Y = f
		case "width":
			el.Width = f
		case "height":
			el.Height = f
		}
	default:
		props, err := patchProps(el.Type, el.Props, property, raw)
		if err != nil {
			return doc, &PropertyError{ElementID: id, Property: property, Err: err}
		}
		el.Props = props
	}

	doc = doc.Clone()
	doc.Elements[i] = el
	return doc, nil
}

// patchProps sets one JSON field on a copy of props.
func patchProps(kind Kind, props Props, property string, raw json.RawMessage) (Props, error) {
	if props == nil {
		props = newProps(kind)
	}
	current, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &fields); err != nil {
		return nil, err
	}
	fields[property] = raw
	patched, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	next := newProps(kind)
	if err := decodeStrict(patched, next); err != nil {
		return nil, err
	}
	// setting rows or cols reshapes data and headers
	normalizeProps(next)
	return next, nil
}
