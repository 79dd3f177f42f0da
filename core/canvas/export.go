package canvas

import (
	"bytes"
	"embed"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

//go:embed export.gohtml
var exportFS embed.FS

var exportTmpl = template.Must(template.ParseFS(exportFS, "export.gohtml"))

var (
	colorRe     = regexp.MustCompile(`^(#[0-9A-Fa-f]{3,8}|[A-Za-z]+|rgba?\(\s*[0-9.]+%?\s*(,\s*[0-9.]+%?\s*){2,3}\))$`)
	keywordRe   = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	fontRe      = regexp.MustCompile(`^[A-Za-z0-9 ,-]+$`)
	dataImageRe = regexp.MustCompile(`^data:image/(png|jpe?g|gif|webp|svg\+xml);base64,[A-Za-z0-9+/]+=*$`)
	httpURLRe   = regexp.MustCompile(`^https?://[^\s"'()<>\\]+$`)
)

// RenderContext is the data a preview is rendered with.
type RenderContext struct {
	Resolve ResolveContext
	// Vars are the numeric variables calculated fields are evaluated against.
	Vars map[string]float64
}

// Rendering is the result of Render. Formula errors do not abort rendering: the failing
// field shows #ERR and its error is reported here.
type Rendering struct {
	HTML          string
	FormulaErrors []error
}

// ExportHTML renders doc as static HTML. Text is escaped and {{key}} tokens are kept as
// they are, to be resolved per record later.
func ExportHTML(doc Document) (string, error) {
	r, err := render(doc, nil)
	if err != nil {
		return "", err
	}
	return r.HTML, nil
}

// Render resolves the placeholders of doc against rc, evaluates its calculated fields and
// renders the result as HTML.
func Render(doc Document, rc RenderContext) (Rendering, error) {
	return render(ResolveDocument(doc, rc.Resolve), &rc)
}

type pageView struct {
	Name     string
	Style    template.CSS
	Elements []elementView
}

type elementView struct {
	ID    string
	Type  Kind
	Block string
	Style template.CSS

	Text string

	Label   string
	Value   string
	Formula string
	Error   string

	Headers     []string
	Rows        [][]string
	HeaderStyle template.CSS
	CellStyle   template.CSS

	Src         template.URL
	Placeholder string
	Alt         string
}

func render(doc Document, rc *RenderContext) (Rendering, error) {
	if doc.Canvas.Width <= 0 || doc.Canvas.Height <= 0 {
		doc.Canvas = DefaultCanvas
	}

	var page style
	page.set("position", "relative")
	page.set("overflow", "hidden")
	page.px("width", doc.Canvas.Width)
	page.px("height", doc.Canvas.Height)
	page.color("background-color", doc.Background.Color)
	if isSafeImage(doc.Background.Image) {
		page.set("background-image", `url("`+doc.Background.Image+`")`)
		page.set("background-size", "cover")
	}

	view := pageView{Name: doc.TemplateName, Style: page.css()}
	var result Rendering
	for i, el := range doc.Elements {
		ev := elementView{ID: el.ID, Type: el.Type}

		var s style
		s.set("position", "absolute")
		s.px("left", el.X)
		s.px("top", el.Y)
		s.px("width", el.Width)
		s.px("height", el.Height)
		s.set("z-index", strconv.Itoa(i+1))
		s.set("box-sizing", "border-box")

		switch p := el.Props.(type) {
		case *TextProps:
			ev.Block = "text"
			ev.Text = p.Content
			s.typography(p.Typography)
			s.set("white-space", "pre-wrap")
			s.color("background-color", p.BackgroundColor)
			s.border(p.BorderWidth, p.BorderColor)
			if el.Type == KindSignature {
				s.set("border-top", "1px solid "+safeColor(p.BorderColor, defaultColor))
			}
		case *CalcProps:
			ev.Block = "calc"
			ev.Label = p.Label
			ev.Formula = p.Formula
			s.typography(p.Typography)
			if rc != nil {
				v, err := Evaluate(p.Formula, rc.Vars)
				if err != nil {
					ev.Value = "#ERR"
					ev.Error = err.Error()
					result.FormulaErrors = append(result.FormulaErrors, err)
				} else {
					ev.Value = FormatNumber(v, p.Decimals)
				}
			}
		case *TableProps:
			ev.Block = "table"
			ev.Headers = p.Headers
			ev.Rows = p.Data
			ev.HeaderStyle, ev.CellStyle = tableStyles(p.CellPadding, p.BorderColor, p.HeaderBgColor, p.HeaderTextColor)
			s.px("font-size", p.FontSize)
			s.set("border-collapse", "collapse")
		case *SubjectsTableProps:
			ev.Block = "table"
			ev.Headers = []string{p.SubjectHeader, p.MaxMarksHeader, p.MarksHeader}
			for _, sub := range p.Subjects {
				ev.Rows = append(ev.Rows, []string{sub.Name, strconv.FormatFloat(sub.MaxMarks, 'f', -1, 64), sub.MarksPlaceholder})
			}
			ev.HeaderStyle, ev.CellStyle = tableStyles(p.CellPadding, p.BorderColor, p.HeaderBgColor, p.HeaderTextColor)
			s.px("font-size", p.FontSize)
			s.set("border-collapse", "collapse")
		case *ImageProps:
			ev.Block = "image"
			ev.Alt = p.PlaceholderText
			if isSafeImage(p.Src) {
				ev.Src = template.URL(p.Src)
			} else {
				ev.Placeholder = p.Src
			}
			s.keyword("object-fit", p.ObjectFit)
			s.px("border-radius", p.BorderRadius)
			s.border(p.BorderWidth, p.BorderColor)
		case *ShapeProps:
			ev.Block = "shape"
			s.color("background-color", p.FillColor)
			if el.Type == KindLine {
				break
			}
			s.border(p.BorderWidth, p.BorderColor)
			if el.Type == KindCircle {
				s.set("border-radius", "50%")
			} else {
				s.px("border-radius", p.BorderRadius)
			}
		default:
			ev.Block = "text"
		}
		ev.Style = s.css()
		view.Elements = append(view.Elements, ev)
	}

	var buf bytes.Buffer
	if err := exportTmpl.Execute(&buf, view); err != nil {
		return Rendering{}, errors.Wrap(err, "executing export template")
	}
	result.HTML = buf.String()
	return result, nil
}

func tableStyles(padding float64, border, headerBg, headerText string) (template.CSS, template.CSS) {
	var cell style
	cell.px("padding", padding)
	cell.border(1, border)
	header := append(style(nil), cell...)
	header.color("background-color", headerBg)
	header.color("color", headerText)
	header.set("font-weight", "bold")
	return header.css(), cell.css()
}

func isSafeImage(src string) bool {
	return dataImageRe.MatchString(src) || httpURLRe.MatchString(src)
}

func safeColor(c, fallback string) string {
	if colorRe.MatchString(c) {
		return c
	}
	return fallback
}

// style accumulates inline CSS declarations. Values that do not look like the expected
// kind of CSS value are dropped.
type style []string

func (s *style) set(prop, value string) {
	if value == "" {
		return
	}
	*s = append(*s, prop+":"+value+";")
}

func (s *style) px(prop string, v float64) {
	s.set(prop, strconv.FormatFloat(v, 'f', -1, 64)+"px")
}

func (s *style) color(prop, c string) {
	if colorRe.MatchString(c) {
		s.set(prop, c)
	}
}

func (s *style) keyword(prop, v string) {
	if keywordRe.MatchString(v) {
		s.set(prop, v)
	}
}

func (s *style) border(width float64, color string) {
	if width <= 0 || !colorRe.MatchString(color) {
		return
	}
	s.set("border", strconv.FormatFloat(width, 'f', -1, 64)+"px solid "+color)
}

func (s *style) typography(t Typography) {
	if t.FontSize > 0 {
		s.px("font-size", t.FontSize)
	}
	s.keyword("font-weight", t.FontWeight)
	if fontRe.MatchString(t.FontFamily) {
		s.set("font-family", t.FontFamily)
	}
	s.keyword("font-style", t.FontStyle)
	s.color("color", t.Color)
	s.keyword("text-align", t.TextAlign)
}

func (s style) css() template.CSS {
	return template.CSS(strings.Join(s, ""))
}
