package canvas

import (
	"reflect"
	"time"
)

// Zoom limits and step, in percent.
const (
	MinZoom     = 25
	MaxZoom     = 200
	DefaultZoom = 100
	ZoomStep    = 10
)

// TextDebounce is the inactivity window after which a burst of text edits becomes one
// history entry.
const TextDebounce = 500 * time.Millisecond

// NowFunc is the editor clock.
var NowFunc = time.Now // mockable

// Tool is the active editor tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolPan    Tool = "pan"
)

// Point is a pointer position in screen pixels.
type Point struct {
	X, Y float64
}

// Target is what a pointer-down landed on: nothing (empty canvas), an element, or one of
// the resize handles of an element.
type Target struct {
	ElementID string
	Handle    Handle
}

type gesture int

const (
	gestureNone gesture = iota
	gestureDrag
	gestureResize
	gesturePan
)

// Editor is the interaction engine of the builder. It owns the current Document, its
// History and the view state (tool, zoom, pan, selection) and turns pointer and keyboard
// input into document mutations.
type Editor struct {
	doc       Document
	history   *History
	lastSaved Document

	tool     Tool
	zoom     float64
	pan      Point
	selected string

	gesture   gesture
	start     Point
	startRect Rect
	startPan  Point
	handle    Handle
	moved     bool

	textPending bool
	lastTextAt  time.Time
}

// NewEditor starts an editing session on doc, which becomes the first history entry and
// the last-saved reference.
func NewEditor(doc Document) *Editor {
	if doc.Canvas.Width <= 0 || doc.Canvas.Height <= 0 {
		doc.Canvas = DefaultCanvas
	}
	return &Editor{
		doc:       doc.Clone(),
		history:   NewHistory(doc),
		lastSaved: doc.Clone(),
		tool:      ToolSelect,
		zoom:      DefaultZoom,
	}
}

// Document returns a copy of the current document.
func (e *Editor) Document() Document { return e.doc.Clone() }

func (e *Editor) History() *History { return e.history }
func (e *Editor) Tool() Tool { return e.tool }
func (e *Editor) Zoom() float64 { return e.zoom }
func (e *Editor) Pan() Point { return e.pan }
func (e *Editor) Selected() string { return e.selected }
func (e *Editor) IsDragging() bool { return e.gesture == gestureDrag }
func (e *Editor) IsResizing() bool { return e.gesture == gestureResize }
func (e *Editor) IsPanning() bool { return e.gesture == gesturePan }
func (e *Editor) SetTool(t Tool) { e.tool = t }
func (e *Editor) scale() float64 { return e.zoom / 100 }
func (e *Editor) maxOrigin() (float64, float64) { return e.doc.Canvas.MaxOrigin() }

// Select changes the selection; unknown ids clear it.
func (e *Editor) Select(id string) {
	if e.doc.Index(id) < 0 {
		id = ""
	}
	e.selected = id
}

// record flushes any pending text burst and snapshots the current document.
func (e *Editor) record() {
	e.textPending = false
	e.history.Record(e.doc)
}

// Flush closes a pending text-edit burst, recording it as one history entry.
func (e *Editor) Flush() {
	if e.textPending {
		e.record()
	}
}

// Tick closes the pending text-edit burst once TextDebounce has elapsed since the last
// keystroke. Callers drive it from their timer.
func (e *Editor) Tick() {
	if e.textPending && NowFunc().Sub(e.lastTextAt) >= TextDebounce {
		e.record()
	}
}

// Add creates an element of the given kind on top of the z-order and selects it.
func (e *Editor) Add(kind Kind) (Element, error) {
	el := NewElement(kind, NewID())
	if err := e.Insert(el); err != nil {
		return Element{}, err
	}
	return el, nil
}

// Insert adds a prepared element on top of the z-order and selects it.
func (e *Editor) Insert(el Element) error {
	e.Flush()
	doc, err := AddElement(e.doc, el)
	if err != nil {
		return err
	}
	e.doc = doc
	e.selected = doc.Elements[len(doc.Elements)-1].ID
	e.record()
	return nil
}

// Update replaces one property of one element and records the change.
// Unknown ids are a no-op.
func (e *Editor) Update(id, property string, value interface{}) error {
	e.Flush()
	if e.doc.Index(id) < 0 {
		return nil
	}
	doc, err := UpdateElement(e.doc, id, property, value)
	if err != nil {
		return err
	}
	e.doc = doc
	e.record()
	return nil
}

// EditText replaces one property like Update, but keystrokes closer together than
// TextDebounce share a single history entry.
func (e *Editor) EditText(id, property string, value interface{}) error {
	if e.doc.Index(id) < 0 {
		return nil
	}
	now := NowFunc()
	if e.textPending && now.Sub(e.lastTextAt) >= TextDebounce {
		e.record()
	}
	doc, err := UpdateElement(e.doc, id, property, value)
	if err != nil {
		return err
	}
	e.doc = doc
	e.textPending = true
	e.lastTextAt = now
	return nil
}

// SetMeta updates the document-level fields.
func (e *Editor) SetMeta(templateName, institutionName, subtitle string) {
	e.Flush()
	e.doc.TemplateName = templateName
	e.doc.InstitutionName = institutionName
	e.doc.Subtitle = subtitle
	e.record()
}

// DeleteSelected removes the selected element. The pre-delete state is already the
// current history entry, so undo brings the element back.
func (e *Editor) DeleteSelected() bool {
	if e.selected == "" || e.doc.Index(e.selected) < 0 {
		return false
	}
	e.Flush()
	e.doc = RemoveElement(e.doc, e.selected)
	e.selected = ""
	e.record()
	return true
}

func (e *Editor) MoveLayerUp() bool { return e.moveLayer(true) }
func (e *Editor) MoveLayerDown() bool { return e.moveLayer(false) }

func (e *Editor) moveLayer(up bool) bool {
	if e.selected == "" {
		return false
	}
	e.Flush()
	before := e.doc.Index(e.selected)
	doc := MoveLayer(e.doc, e.selected, up)
	if doc.Index(e.selected) == before {
		return false
	}
	e.doc = doc
	e.record()
	return true
}

// Undo restores the previous snapshot.
func (e *Editor) Undo() bool {
	e.Flush()
	return e.history.Undo(e.restore)
}

// Redo restores the next snapshot.
func (e *Editor) Redo() bool {
	e.Flush()
	return e.history.Redo(e.restore)
}

func (e *Editor) restore(doc Document) {
	e.doc = doc
	e.gesture = gestureNone
	if e.doc.Index(e.selected) < 0 {
		e.selected = ""
	}
}

// PointerDown starts a gesture. In pan mode (tool or held modifier) it pans the viewport;
// on a resize handle of an element it resizes; on an element it selects and drags;
// on the empty canvas it clears the selection.
func (e *Editor) PointerDown(p Point, target Target, panModifier bool) {
	e.Flush()
	e.gesture = gestureNone
	e.start = p
	e.moved = false

	if e.tool == ToolPan || panModifier {
		e.gesture = gesturePan
		e.startPan = e.pan
		return
	}

	el, ok := e.doc.Element(target.ElementID)
	if !ok {
		e.selected = ""
		return
	}
	e.selected = el.ID
	e.startRect = el.Rect()
	if target.Handle.Valid() {
		e.gesture = gestureResize
		e.handle = target.Handle
		return
	}
	e.gesture = gestureDrag
}

// PointerMove advances the current gesture. Element deltas are divided by the zoom factor
// so elements follow the pointer; drag positions are clamped to the canvas.
func (e *Editor) PointerMove(p Point) {
	dx, dy := p.X-e.start.X, p.Y-e.start.Y

	switch e.gesture {
	case gesturePan:
		e.pan = Point{X: e.startPan.X + dx, Y: e.startPan.Y + dy}
	case gestureDrag:
		maxX, maxY := e.maxOrigin()
		r := e.startRect
		r.X = clampFloat(r.X+dx/e.scale(), 0, maxX)
		r.Y = clampFloat(r.Y+dy/e.scale(), 0, maxY)
		e.setRect(r)
	case gestureResize:
		e.setRect(e.handle.Apply(e.startRect, dx/e.scale(), dy/e.scale()))
	}
}

// PointerUp ends the current gesture; a drag or resize that changed the element is
// recorded as one history entry.
func (e *Editor) PointerUp() {
	if (e.gesture == gestureDrag || e.gesture == gestureResize) && e.moved {
		e.record()
	}
	e.gesture = gestureNone
	e.moved = false
}

// setRect writes the in-flight rect of the selected element without recording history.
func (e *Editor) setRect(r Rect) {
	i := e.doc.Index(e.selected)
	if i < 0 {
		return
	}
	if e.doc.Elements[i].Rect() == r {
		return
	}
	doc := e.doc.Clone()
	doc.Elements[i].setRect(r)
	e.doc = doc
	e.moved = true
}

// SetZoom clamps z to [MinZoom, MaxZoom].
func (e *Editor) SetZoom(z float64) { e.zoom = clampFloat(z, MinZoom, MaxZoom) }
func (e *Editor) ZoomIn() { e.SetZoom(e.zoom + ZoomStep) }
func (e *Editor) ZoomOut() { e.SetZoom(e.zoom - ZoomStep) }

// ResetView restores 100% zoom and removes any pan offset.
func (e *Editor) ResetView() {
	e.zoom = DefaultZoom
	e.pan = Point{}
}

// Wheel zooms when the zoom modifier is held; plain scrolling is left to the page.
func (e *Editor) Wheel(deltaY float64, modifier bool) bool {
	if !modifier || deltaY == 0 {
		return false
	}
	if deltaY < 0 {
		e.ZoomIn()
	} else {
		e.ZoomOut()
	}
	return true
}

// MarkSaved makes the current document the last-saved reference.
func (e *Editor) MarkSaved() {
	e.Flush()
	e.lastSaved = e.doc.Clone()
}

// Dirty reports whether the document differs from the last-saved reference.
func (e *Editor) Dirty() bool {
	return !reflect.DeepEqual(e.doc, e.lastSaved)
}
