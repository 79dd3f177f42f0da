package canvas

import "strings"

// Key is a key-down event as the builder sees it.
type Key struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	// InTextInput is set when focus is in a text input; shortcuts are then left alone.
	InTextInput bool `json:"inTextInput,omitempty"`
}

// KeyDown applies the editor shortcuts and reports whether k was handled:
//
//	v                    select tool
//	h                    pan tool
//	Delete, Backspace    delete the selected element
//	Ctrl/Cmd+Z           undo
//	Ctrl/Cmd+Shift+Z     redo
//	Ctrl/Cmd+Y           redo
//	Ctrl/Cmd+0           reset zoom and pan
func (e *Editor) KeyDown(k Key) bool {
	if k.InTextInput {
		return false
	}
	mod := k.Ctrl || k.Meta
	key := strings.ToLower(k.Key)

	switch {
	case mod && key == "z" && k.Shift:
		e.Redo()
	case mod && key == "z":
		e.Undo()
	case mod && key == "y":
		e.Redo()
	case mod && key == "0":
		e.ResetView()
	case mod:
		return false
	case key == "v":
		e.tool = ToolSelect
	case key == "h":
		e.tool = ToolPan
	case key == "delete" || key == "backspace":
		return e.DeleteSelected()
	default:
		return false
	}
	return true
}
