package canvas

import "strings"

// Minimum element size a resize gesture can produce.
const (
	MinWidth  = 30
	MinHeight = 20
)

// Handle names one of the eight resize handles by compass direction.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// Handles lists every resize handle, clockwise from the top-left corner.
var Handles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

func (h Handle) Valid() bool {
	for _, handle := range Handles {
		if h == handle {
			return true
		}
	}
	return false
}

func (h Handle) north() bool { return strings.HasPrefix(string(h), "n") }
func (h Handle) south() bool { return strings.HasPrefix(string(h), "s") }
func (h Handle) east() bool  { return strings.HasSuffix(string(h), "e") }
func (h Handle) west() bool  { return strings.HasSuffix(string(h), "w") }

// Apply resizes start by the pointer delta (in canvas units). West and north handles move
// the origin so the opposite edge stays put. The result is never smaller than
// MinWidth x MinHeight.
func (h Handle) Apply(start Rect, dx, dy float64) Rect {
	r := start
	switch {
	case h.east():
		r.Width = maxFloat(MinWidth, start.Width+dx)
	case h.west():
		r.Width = maxFloat(MinWidth, start.Width-dx)
		r.X = start.X + start.Width - r.Width
	}
	switch {
	case h.south():
		r.Height = maxFloat(MinHeight, start.Height+dy)
	case h.north():
		r.Height = maxFloat(MinHeight, start.Height-dy)
		r.Y = start.Y + start.Height - r.Height
	}
	return r
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
