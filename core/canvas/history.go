package canvas

// MaxHistory caps the number of snapshots kept for undo/redo.
const MaxHistory = 50

// History is a linear undo/redo stack of Document snapshots.
// Entries after the cursor form the redo branch.
type History struct {
	entries  []Document
	cursor   int
	applying bool
}

// NewHistory returns a history holding initial as its only entry.
func NewHistory(initial Document) *History {
	h := new(History)
	h.Record(initial)
	return h
}

// Record appends a deep copy of doc after the cursor, discarding the redo branch and the
// oldest entries beyond MaxHistory. It is ignored while an undo or redo is being applied.
func (h *History) Record(doc Document) {
	if h.applying {
		return
	}
	if len(h.entries) > 0 {
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, doc.Clone())
	if over := len(h.entries) - MaxHistory; over > 0 {
		h.entries = append([]Document(nil), h.entries[over:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo moves the cursor back and hands a copy of that snapshot to apply.
// It reports false (and does nothing) at the first entry.
func (h *History) Undo(apply func(Document)) bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	h.restore(apply)
	return true
}

// Redo moves the cursor forward and hands a copy of that snapshot to apply.
// It reports false (and does nothing) at the tail.
func (h *History) Redo(apply func(Document)) bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	h.restore(apply)
	return true
}

func (h *History) restore(apply func(Document)) {
	h.applying = true
	defer func() { h.applying = false }()
	apply(h.entries[h.cursor].Clone())
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }
func (h *History) Len() int { return len(h.entries) }
func (h *History) Cursor() int { return h.cursor }

// Current returns a copy of the snapshot under the cursor.
func (h *History) Current() (Document, bool) {
	if len(h.entries) == 0 {
		return Document{}, false
	}
	return h.entries[h.cursor].Clone(), true
}
