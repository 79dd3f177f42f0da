package marksheet

import (
	"context"
	"fmt"
	"html/template"
	"net/mail"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/canvas"
	"github.com/trezcool/marksheet/core/school"
)

const emailTemplate = "marksheet"

type emailData struct {
	GuardianName    string
	StudentName     string
	ClassName       string
	TestName        string
	InstitutionName string
	Total           string
	MaxTotal        string
	Percentage      string
	Grade           string
	Result          string
	Marksheet       template.HTML
}

func (svc *service) Send(ctx context.Context, id string, req SendRequest) (int, error) {
	tpl, err := svc.repo.GetTemplate(ctx, id)
	if err != nil {
		return 0, err
	}
	if tpl.ClassID == "" {
		return 0, core.NewValidationError(ErrNoClass, core.FieldError{Field: "classId", Error: ErrNoClass.Error()})
	}

	students, err := svc.school.Students(ctx, school.StudentFilter{ClassID: tpl.ClassID})
	if err != nil {
		return 0, errors.Wrap(err, "querying students")
	}
	doc, _ := tpl.Document()

	msgs := make([]*core.EmailMessage, 0, len(students))
	for _, std := range students {
		if std.GuardianEmail == "" {
			continue
		}
		msg, err := svc.marksheetMessage(ctx, tpl, doc, std, req)
		if err != nil {
			return 0, errors.Wrapf(err, "preparing marksheet of %s", std.ID)
		}
		msgs = append(msgs, msg)
	}

	if len(msgs) > 0 {
		svc.mail.SendMessages(msgs...)
	}
	return len(msgs), nil
}

func (svc *service) marksheetMessage(
	ctx context.Context,
	tpl Template,
	doc canvas.Document,
	std school.Student,
	req SendRequest,
) (*core.EmailMessage, error) {
	rc, report, err := svc.renderContext(ctx, tpl, std.ID, req.TestID, req.KeySetID)
	if err != nil {
		return nil, err
	}
	rendering, err := canvas.Render(doc, rc)
	if err != nil {
		return nil, errors.Wrap(err, "rendering marksheet")
	}
	for _, ferr := range rendering.FormulaErrors {
		svc.logger.Warn(fmt.Sprintf("marksheet %s: student %s", tpl.TemplateID, std.ID), ferr)
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: std.GuardianName(), Address: std.GuardianEmail}},
		Subject:      fmt.Sprintf("%s marksheet: %s", report.Test.Name, std.Name),
		TemplateName: emailTemplate,
		TemplateData: emailData{
			GuardianName:    std.GuardianName(),
			StudentName:     std.Name,
			ClassName:       report.Class.Name,
			TestName:        report.Test.Name,
			InstitutionName: tpl.InstitutionName,
			Total:           strconv.FormatFloat(report.Total, 'f', -1, 64),
			MaxTotal:        strconv.FormatFloat(report.MaxTotal, 'f', -1, 64),
			Percentage:      canvas.FormatNumber(report.Percentage, 2),
			Grade:           report.Grade,
			Result:          report.Result,
			Marksheet:       template.HTML(rendering.HTML),
		},
	}
	msg.Subject = strings.TrimSpace(msg.Subject)

	filename := fmt.Sprintf("marksheet-%s.html", attachmentName(std))
	if err := msg.Attach(strings.NewReader(rendering.HTML), filename, "text/html; charset=utf-8"); err != nil {
		return nil, errors.Wrap(err, "attaching marksheet")
	}
	return msg, nil
}

func attachmentName(std school.Student) string {
	name := std.RollNumber
	if name == "" {
		name = std.ID
	}
	if key := (school.Subject{Name: name}).Key(); key != "" {
		return key
	}
	return "student"
}
