package canvas

import "github.com/google/uuid"

const (
	defaultFont      = "Arial"
	defaultColor     = "#000000"
	defaultBorder    = "#cccccc"
	defaultHeaderBg  = "#f0f0f0"
	transparentColor = "transparent"
)

// NewID returns a fresh element id.
func NewID() string {
	return uuid.New().String()
}

func typography(size float64, weight, align string) Typography {
	return Typography{
		FontSize:   size,
		FontWeight: weight,
		FontFamily: defaultFont,
		Color:      defaultColor,
		TextAlign:  align,
	}
}

func textElement(id string, kind Kind, r Rect, content string, t Typography) Element {
	return Element{
		ID: id, Type: kind,
		X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
		Props: &TextProps{Content: content, Typography: t},
	}
}

// NewElement creates an element of the given kind with its default position, size, styling
// and placeholder content. Unknown kinds produce a generic text element.
func NewElement(kind Kind, id string) Element {
	switch kind {
	case KindHeading:
		return textElement(id, kind, Rect{100, 20, 400, 40}, "{{institutionName}}", typography(24, "bold", "center"))
	case KindInputField:
		el := textElement(id, kind, Rect{50, 100, 250, 30}, "Label: ________", typography(14, "normal", "left"))
		el.Props.(*TextProps).BorderColor = defaultBorder
		el.Props.(*TextProps).BorderWidth = 1
		return el
	case KindDateField:
		return textElement(id, kind, Rect{400, 100, 150, 30}, "Date: {{date}}", typography(14, "normal", "left"))
	case KindStudentName:
		return textElement(id, kind, Rect{50, 140, 300, 30}, "Student Name: {{studentName}}", typography(16, "bold", "left"))
	case KindRollNumber:
		return textElement(id, kind, Rect{50, 175, 200, 30}, "Roll No: {{rollNumber}}", typography(14, "normal", "left"))
	case KindClassName:
		return textElement(id, kind, Rect{300, 175, 200, 30}, "Class: {{className}}", typography(14, "normal", "left"))
	case KindTotalMarks:
		return textElement(id, kind, Rect{50, 480, 250, 30}, "Total: {{total}} / {{maxTotal}}", typography(14, "bold", "left"))
	case KindPercentage:
		return textElement(id, kind, Rect{50, 515, 200, 30}, "Percentage: {{percentage}}%", typography(14, "bold", "left"))
	case KindGrade:
		return textElement(id, kind, Rect{300, 515, 150, 30}, "Grade: {{grade}}", typography(14, "bold", "left"))
	case KindResult:
		return textElement(id, kind, Rect{300, 480, 200, 30}, "Result: {{result}}", typography(16, "bold", "left"))
	case KindRemarks:
		return textElement(id, kind, Rect{50, 560, 500, 60}, "Remarks: {{remarks}}", typography(14, "normal", "left"))
	case KindSignature:
		el := textElement(id, kind, Rect{400, 680, 150, 50}, "Principal's Signature", typography(12, "normal", "center"))
		el.Props.(*TextProps).BorderColor = defaultColor
		return el
	case KindCalculated:
		return Element{
			ID: id, Type: kind, X: 50, Y: 600, Width: 250, Height: 30,
			Props: &CalcProps{
				Label:      "Average:",
				Formula:    "total / maxTotal * 100",
				Decimals:   2,
				Typography: typography(14, "normal", "left"),
			},
		}
	case KindTable:
		tbl := &TableProps{
			CellPadding:     8,
			BorderColor:     defaultColor,
			HeaderBgColor:   defaultHeaderBg,
			HeaderTextColor: defaultColor,
			FontSize:        12,
		}
		tbl.Resize(3, 3)
		return Element{ID: id, Type: kind, X: 50, Y: 220, Width: 500, Height: 120, Props: tbl}
	case KindSubjectsTable:
		return Element{
			ID: id, Type: kind, X: 50, Y: 220, Width: 500, Height: 240,
			Props: &SubjectsTableProps{
				Subjects:        []SubjectColumn{},
				SubjectHeader:   "Subject",
				MaxMarksHeader:  "Max Marks",
				MarksHeader:     "Marks Obtained",
				CellPadding:     8,
				BorderColor:     defaultColor,
				HeaderBgColor:   defaultHeaderBg,
				HeaderTextColor: defaultColor,
				FontSize:        12,
			},
		}
	case KindPhoto:
		return Element{
			ID: id, Type: kind, X: 450, Y: 100, Width: 100, Height: 120,
			Props: &ImageProps{Src: "{{photo}}", PlaceholderText: "Student Photo", ObjectFit: "cover", BorderColor: defaultBorder, BorderWidth: 1},
		}
	case KindLogo:
		return Element{
			ID: id, Type: kind, X: 20, Y: 20, Width: 80, Height: 80,
			Props: &ImageProps{PlaceholderText: "Logo", ObjectFit: "contain"},
		}
	case KindBox:
		return Element{
			ID: id, Type: kind, X: 50, Y: 50, Width: 200, Height: 100,
			Props: &ShapeProps{FillColor: transparentColor, BorderColor: defaultColor, BorderWidth: 1},
		}
	case KindLine:
		return Element{
			ID: id, Type: kind, X: 50, Y: 120, Width: 500, Height: 2,
			Props: &ShapeProps{FillColor: defaultColor, BorderColor: defaultColor},
		}
	case KindCircle:
		return Element{
			ID: id, Type: kind, X: 50, Y: 50, Width: 100, Height: 100,
			Props: &ShapeProps{FillColor: transparentColor, BorderColor: defaultColor, BorderWidth: 1},
		}
	default:
		return textElement(id, KindText, Rect{50, 50, 200, 30}, "Text", typography(14, "normal", "left"))
	}
}
