package marksheet

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
)

// Orderable template fields, by their JSON name.
const (
	OrderByTemplateName = "templateName"
	OrderByCreatedAt    = "createdAt"
	OrderByUpdatedAt    = "updatedAt"
)

var OrderingFields = []string{OrderByTemplateName, OrderByCreatedAt, OrderByUpdatedAt}

type (
	// Template is a stored marksheet template.
	Template struct {
		canvas.SavedDocument
		ClassID   string    `json:"classId"`
		Warnings  []Warning `json:"warnings,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	NewTemplate struct {
		ClassID               string           `json:"classId"`
		TemplateName          string           `json:"templateName" validate:"notblank,max=200"`
		InstitutionName       string           `json:"institutionName" validate:"max=200"`
		Subtitle              string           `json:"subtitle" validate:"max=200"`
		Elements              []canvas.Element `json:"elements"`
		Sections              *canvas.Sections `json:"sections"`
		Logo                  string           `json:"logo"`
		CanvasBackgroundColor string           `json:"canvasBackgroundColor" validate:"omitempty,hexcolor_or_empty"`
		CanvasBackgroundImage string           `json:"canvasBackgroundImage"`
		CanvasWidth           float64          `json:"canvasWidth" validate:"gte=0,lte=5000"`
		CanvasHeight          float64          `json:"canvasHeight" validate:"gte=0,lte=5000"`
	}

	UpdateTemplate struct {
		TemplateID string `json:"templateId" validate:"required"`
		NewTemplate
	}

	// QueryFilter narrows template listings. Search does a case-insensitive match on the
	// template or institution name.
	QueryFilter struct {
		ClassID string
		Search  string
	}

	PreviewRequest struct {
		StudentID string `json:"studentId" query:"studentId" validate:"required"`
		TestID    string `json:"testId" query:"testId"`
		KeySetID  string `json:"keySetId" query:"keySetId"`
	}

	SendRequest struct {
		TestID   string `json:"testId"`
		KeySetID string `json:"keySetId"`
	}
)

// Document returns the template's builder document and the element to select first.
func (t Template) Document() (canvas.Document, string) {
	return canvas.Load(t.SavedDocument)
}

func (nt NewTemplate) saved() canvas.SavedDocument {
	return canvas.SavedDocument{
		TemplateName:          core.CleanString(nt.TemplateName),
		InstitutionName:       core.CleanString(nt.InstitutionName),
		Subtitle:              nt.Subtitle,
		Elements:              nt.Elements,
		Sections:              nt.Sections,
		Logo:                  nt.Logo,
		CanvasBackgroundColor: nt.CanvasBackgroundColor,
		CanvasBackgroundImage: nt.CanvasBackgroundImage,
		CanvasWidth:           nt.CanvasWidth,
		CanvasHeight:          nt.CanvasHeight,
	}
}

// Document converts the request into a builder document.
func (nt NewTemplate) Document() canvas.Document {
	doc, _ := canvas.Load(nt.saved())
	return doc
}

// Validate checks the request fields, then that element ids are unique.
func (nt NewTemplate) Validate(validate *validator.Validate) error {
	if err := validate.Struct(nt); err != nil {
		return err
	}
	return checkElements(nt.Document())
}

func (ut UpdateTemplate) Validate(validate *validator.Validate) error {
	if err := validate.Struct(ut); err != nil {
		return err
	}
	return checkElements(ut.Document())
}

func checkElements(doc canvas.Document) error {
	if err := canvas.CheckIDs(doc.Elements); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "elements", Error: err.Error()})
	}
	return nil
}

// ValidateOrdering rejects orderings on unknown fields.
func ValidateOrdering(ordering []core.DBOrdering) error {
	for _, ord := range ordering {
		known := false
		for _, f := range OrderingFields {
			if ord.Field == f {
				known = true
				break
			}
		}
		if !known {
			err := errors.Errorf("cannot order by %q", ord.Field)
			return core.NewValidationError(err, core.FieldError{Field: "ordering", Error: err.Error()})
		}
	}
	return nil
}
