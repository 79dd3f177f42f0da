package marksheet

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
)

// Edit operations.
const (
	OpAdd       = "add"
	OpUpdate    = "update"
	OpMove      = "move"
	OpResize    = "resize"
	OpDelete    = "delete"
	OpLayerUp   = "layer_up"
	OpLayerDown = "layer_down"
	OpUndo      = "undo"
	OpRedo      = "redo"
	OpKey       = "key"
	OpZoom      = "zoom"
)

var errUnknownElement = errors.New("unknown element")

type (
	// Operation is one scripted builder interaction. DX and DY are canvas units; move and
	// resize replay them as a pointer gesture at the editor's current zoom.
	Operation struct {
		Op       string          `json:"op"`
		ID       string          `json:"id,omitempty"`
		Type     canvas.Kind     `json:"type,omitempty"`
		Property string          `json:"property,omitempty"`
		Value    json.RawMessage `json:"value,omitempty"`
		DX       float64         `json:"dx,omitempty"`
		DY       float64         `json:"dy,omitempty"`
		Handle   canvas.Handle   `json:"handle,omitempty"`
		Key      *canvas.Key     `json:"key,omitempty"`
		Zoom     float64         `json:"zoom,omitempty"`
	}

	// OperationError reports the operation of a batch that could not be applied.
	OperationError struct {
		Index int
		Op    string
		Err   error
	}
)

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index, e.Op, e.Err)
}

// ValidationError converts the error for API consumers.
func (e *OperationError) ValidationError() error {
	return core.NewValidationError(e, core.FieldError{
		Field: fmt.Sprintf("operations[%d]", e.Index),
		Error: e.Err.Error(),
	})
}

// ApplyOperations replays ops in order against ed and stops at the first invalid one.
func ApplyOperations(ed *canvas.Editor, ops []Operation) error {
	for i, op := range ops {
		if err := applyOperation(ed, op); err != nil {
			return &OperationError{Index: i, Op: op.Op, Err: err}
		}
	}
	ed.Flush()
	return nil
}

func applyOperation(ed *canvas.Editor, op Operation) error {
	requireElement := func() error {
		if op.ID == "" {
			return errors.New("id is required")
		}
		if _, ok := ed.Document().Element(op.ID); !ok {
			return errors.Wrap(errUnknownElement, op.ID)
		}
		return nil
	}

	switch op.Op {
	case OpAdd:
		if !op.Type.Known() {
			return errors.Errorf("unknown element type %q", op.Type)
		}
		if op.ID == "" {
			_, err := ed.Add(op.Type)
			return err
		}
		return ed.Insert(canvas.NewElement(op.Type, op.ID))

	case OpUpdate:
		if err := requireElement(); err != nil {
			return err
		}
		if len(op.Value) == 0 {
			return errors.New("value is required")
		}
		return ed.Update(op.ID, op.Property, op.Value)

	case OpMove, OpResize:
		if err := requireElement(); err != nil {
			return err
		}
		target := canvas.Target{ElementID: op.ID}
		if op.Op == OpResize {
			if !op.Handle.Valid() {
				return errors.Errorf("unknown resize handle %q", op.Handle)
			}
			target.Handle = op.Handle
		}
		scale := ed.Zoom() / 100
		ed.SetTool(canvas.ToolSelect)
		ed.PointerDown(canvas.Point{}, target, false)
		ed.PointerMove(canvas.Point{X: op.DX * scale, Y: op.DY * scale})
		ed.PointerUp()

	case OpDelete, OpLayerUp, OpLayerDown:
		if err := requireElement(); err != nil {
			return err
		}
		ed.Select(op.ID)
		switch op.Op {
		case OpDelete:
			ed.DeleteSelected()
		case OpLayerUp:
			ed.MoveLayerUp()
		default:
			ed.MoveLayerDown()
		}

	case OpUndo:
		ed.Undo()
	case OpRedo:
		ed.Redo()

	case OpKey:
		if op.Key == nil {
			return errors.New("key is required")
		}
		if op.ID != "" {
			if err := requireElement(); err != nil {
				return err
			}
			ed.Select(op.ID)
		}
		ed.KeyDown(*op.Key)

	case OpZoom:
		if op.Zoom <= 0 {
			return errors.New("zoom must be positive")
		}
		ed.SetZoom(op.Zoom)

	default:
		return errors.Errorf("unknown operation %q", op.Op)
	}
	return nil
}
