package canvas

import "sort"

// Section boundaries as fractions of the canvas height.
const (
	headerFraction = 0.25
	footerFraction = 0.75
)

// SectionStyle is the padding and background of one persisted section.
type SectionStyle struct {
	Padding    float64 `json:"padding"`
	Background string  `json:"backgroundColor"`
}

type SectionStyles struct {
	Header SectionStyle `json:"header"`
	Body   SectionStyle `json:"body"`
	Footer SectionStyle `json:"footer"`
}

func DefaultSectionStyles() SectionStyles {
	return SectionStyles{
		Header: SectionStyle{Padding: 20, Background: transparentColor},
		Body:   SectionStyle{Padding: 20, Background: transparentColor},
		Footer: SectionStyle{Padding: 20, Background: transparentColor},
	}
}

// Section is a vertical band of the page in the persisted form.
type Section struct {
	Elements []Element    `json:"elements"`
	Style    SectionStyle `json:"style"`
}

// Sections is the header/body/footer grouping stored alongside the flat element list.
type Sections struct {
	Header Section `json:"header"`
	Body   Section `json:"body"`
	Footer Section `json:"footer"`
}

// Partition groups elements by their vertical midpoint: above a quarter of height into the
// header, below three quarters into the footer, the rest into the body. Within a section,
// elements are ordered by midpoint; ties keep their z-order.
func Partition(elements []Element, height float64, styles SectionStyles) Sections {
	if height <= 0 {
		height = DefaultCanvas.Height
	}
	ordered := make([]Element, len(elements))
	for i, el := range elements {
		ordered[i] = el.Clone()
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MidY() < ordered[j].MidY()
	})

	s := Sections{
		Header: Section{Elements: []Element{}, Style: styles.Header},
		Body:   Section{Elements: []Element{}, Style: styles.Body},
		Footer: Section{Elements: []Element{}, Style: styles.Footer},
	}
	for _, el := range ordered {
		switch mid := el.MidY(); {
		case mid < height*headerFraction:
			s.Header.Elements = append(s.Header.Elements, el)
		case mid < height*footerFraction:
			s.Body.Elements = append(s.Body.Elements, el)
		default:
			s.Footer.Elements = append(s.Footer.Elements, el)
		}
	}
	return s
}

// Combine flattens the sections back into one list: header, then body, then footer.
func (s Sections) Combine() []Element {
	els := make([]Element, 0, len(s.Header.Elements)+len(s.Body.Elements)+len(s.Footer.Elements))
	for _, sec := range []Section{s.Header, s.Body, s.Footer} {
		for _, el := range sec.Elements {
			els = append(els, el.Clone())
		}
	}
	return els
}

// Styles returns the style of each section.
func (s Sections) Styles() SectionStyles {
	return SectionStyles{Header: s.Header.Style, Body: s.Body.Style, Footer: s.Footer.Style}
}

// Len is the number of elements across all sections.
func (s Sections) Len() int {
	return len(s.Header.Elements) + len(s.Body.Elements) + len(s.Footer.Elements)
}
