package marksheet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
	"github.com/trezcool/marksheet/core/school"
)

var (
	ErrNotFound = errors.New("template not found")
	ErrNoClass  = errors.New("the template is not linked to a class")
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateTemplate(ctx context.Context, tpl Template, exec ...core.DBExecutor) (Template, error)
		UpdateTemplate(ctx context.Context, tpl Template, exec ...core.DBExecutor) (Template, error)
		GetTemplate(ctx context.Context, id string, exec ...core.DBExecutor) (Template, error)
		// QueryTemplates applies AND operation on the non-empty QueryFilter fields.
		QueryTemplates(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Template, error)
		DeleteTemplate(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nt NewTemplate) (Template, error)
		Update(ctx context.Context, ut UpdateTemplate) (Template, error)
		Get(ctx context.Context, id string) (Template, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Template, error)
		Delete(ctx context.Context, id string) error
		// Export returns the template's static HTML with placeholders left in.
		Export(ctx context.Context, id string) (string, error)
		// Preview renders the template for one student.
		Preview(ctx context.Context, id string, req PreviewRequest) (canvas.Rendering, error)
		// ApplyEdits replays a batch of builder operations and stores the result.
		ApplyEdits(ctx context.Context, id string, ops []Operation) (Template, error)
		// Send emails every student of the template's class their marksheet and returns how
		// many messages were queued.
		Send(ctx context.Context, id string, req SendRequest) (int, error)
	}

	service struct {
		repo   Repository
		school school.Service
		mail   core.EmailService
		logger core.Logger
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, schoolSvc school.Service, mail core.EmailService, logger core.Logger) *service {
	return &service{
		repo:   repo,
		school: schoolSvc,
		mail:   mail,
		logger: logger,
	}
}

func (svc *service) Create(ctx context.Context, nt NewTemplate) (Template, error) {
	doc := nt.Document()
	saved, err := canvas.Save(doc)
	if err != nil {
		return Template{}, errors.Wrap(err, "saving document")
	}

	now := NowFunc().UTC()
	tpl := Template{
		SavedDocument: saved,
		ClassID:       nt.ClassID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tpl.TemplateID = uuid.New().String()

	if tpl, err = svc.repo.CreateTemplate(ctx, tpl); err != nil {
		return Template{}, err
	}
	return svc.withWarnings(ctx, tpl, doc), nil
}

func (svc *service) Update(ctx context.Context, ut UpdateTemplate) (Template, error) {
	old, err := svc.repo.GetTemplate(ctx, ut.TemplateID)
	if err != nil {
		return Template{}, err
	}

	doc := ut.Document()
	saved, err := canvas.Save(doc)
	if err != nil {
		return Template{}, errors.Wrap(err, "saving document")
	}
	tpl := Template{
		SavedDocument: saved,
		ClassID:       ut.ClassID,
		CreatedAt:     old.CreatedAt,
		UpdatedAt:     NowFunc().UTC(),
	}
	tpl.TemplateID = old.TemplateID

	if tpl, err = svc.repo.UpdateTemplate(ctx, tpl); err != nil {
		return Template{}, err
	}
	return svc.withWarnings(ctx, tpl, doc), nil
}

func (svc *service) Get(ctx context.Context, id string) (Template, error) {
	tpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}
	doc, _ := tpl.Document()
	return svc.withWarnings(ctx, tpl, doc), nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Template, error) {
	if err := ValidateOrdering(ordering); err != nil {
		return nil, err
	}
	if filter != nil {
		filter.Search = core.CleanString(filter.Search)
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: OrderByUpdatedAt}}
	}
	return svc.repo.QueryTemplates(ctx, filter, ordering)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTemplate(ctx, id)
}

func (svc *service) Export(ctx context.Context, id string) (string, error) {
	tpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return "", err
	}
	doc, _ := tpl.Document()
	return canvas.ExportHTML(doc)
}

func (svc *service) Preview(ctx context.Context, id string, req PreviewRequest) (canvas.Rendering, error) {
	tpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return canvas.Rendering{}, err
	}
	rc, _, err := svc.renderContext(ctx, tpl, req.StudentID, req.TestID, req.KeySetID)
	if err != nil {
		return canvas.Rendering{}, err
	}
	doc, _ := tpl.Document()
	return canvas.Render(doc, rc)
}

func (svc *service) ApplyEdits(ctx context.Context, id string, ops []Operation) (Template, error) {
	tpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}

	doc, selected := tpl.Document()
	ed := canvas.NewEditor(doc)
	ed.Select(selected)
	if err = ApplyOperations(ed, ops); err != nil {
		if opErr, ok := err.(*OperationError); ok {
			return Template{}, opErr.ValidationError()
		}
		return Template{}, err
	}

	doc = ed.Document()
	saved, err := canvas.Save(doc)
	if err != nil {
		return Template{}, errors.Wrap(err, "saving document")
	}
	saved.TemplateID = tpl.TemplateID
	tpl.SavedDocument = saved
	tpl.UpdatedAt = NowFunc().UTC()

	if tpl, err = svc.repo.UpdateTemplate(ctx, tpl); err != nil {
		return Template{}, err
	}
	return svc.withWarnings(ctx, tpl, doc), nil
}

// renderContext resolves a student's report into the data the template renders with.
func (svc *service) renderContext(
	ctx context.Context,
	tpl Template,
	studentID, testID, keySetID string,
) (canvas.RenderContext, school.Report, error) {
	report, err := svc.school.Report(ctx, studentID, testID)
	if err != nil {
		return canvas.RenderContext{}, school.Report{}, errors.Wrap(err, "building report")
	}

	var ks *school.KeySet
	if keySetID != "" {
		set, err := svc.school.KeySet(ctx, keySetID)
		if err != nil {
			return canvas.RenderContext{}, school.Report{}, errors.Wrap(err, "getting key set")
		}
		ks = &set
	}

	rc := report.RenderContext(ks)
	if _, ok := rc.Resolve.Record["institutionName"]; !ok && tpl.InstitutionName != "" {
		rc.Resolve.Record["institutionName"] = tpl.InstitutionName
	}
	return rc, report, nil
}

// knownKeys lists every placeholder key the template's class can resolve.
func (svc *service) knownKeys(ctx context.Context, classID string) ([]string, error) {
	var subjects []school.Subject
	var students []school.Student
	if classID != "" {
		var err error
		if subjects, err = svc.school.Subjects(ctx, classID); err != nil {
			return nil, err
		}
		if students, err = svc.school.Students(ctx, school.StudentFilter{ClassID: classID}); err != nil {
			return nil, err
		}
	}
	keySets, err := svc.school.KeySets(ctx)
	if err != nil {
		return nil, err
	}

	keys := append(school.BuiltinKeys(subjects), "institutionName")
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	add := func(k string) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, std := range students {
		for k := range std.Fields {
			add(k)
		}
	}
	for _, ks := range keySets {
		for k := range ks.Mappings {
			add(k)
		}
	}
	return keys, nil
}

// withWarnings attaches placeholder diagnostics. They are advisory, so failures are only logged.
func (svc *service) withWarnings(ctx context.Context, tpl Template, doc canvas.Document) Template {
	keys, err := svc.knownKeys(ctx, tpl.ClassID)
	if err != nil {
		svc.logger.Warn("marksheet: listing placeholder keys", err)
		return tpl
	}
	tpl.Warnings = Diagnose(doc, keys)
	return tpl
}
