package canvas

import "strconv"

// MaxTableSize bounds the rows and cols of a free table.
const MaxTableSize = 50

// Resize sets the table dimensions and reshapes Data and Headers to match:
// new cells are empty, new headers are "Header N", extra rows/cols are dropped.
func (p *TableProps) Resize(rows, cols int) {
	rows = clampInt(rows, 1, MaxTableSize)
	cols = clampInt(cols, 1, MaxTableSize)

	data := make([][]string, rows)
	for i := range data {
		row := make([]string, cols)
		if i < len(p.Data) {
			copy(row, p.Data[i])
		}
		data[i] = row
	}

	headers := make([]string, cols)
	for i := range headers {
		if i < len(p.Headers) {
			headers[i] = p.Headers[i]
		} else {
			headers[i] = "Header " + strconv.Itoa(i+1)
		}
	}

	p.Rows, p.Cols, p.Data, p.Headers = rows, cols, data, headers
}

// SetCell writes one data cell; out-of-range coordinates are ignored.
func (p *TableProps) SetCell(row, col int, value string) {
	if row < 0 || row >= len(p.Data) || col < 0 || col >= len(p.Data[row]) {
		return
	}
	p.Data[row][col] = value
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
