package echoapi

import (
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/school"
)

const maxDatasetSize = 32 << 20

type (
	schoolApi struct {
		svc      school.Service
		validate *validator.Validate
	}

	classQuery struct {
		ClassID string `query:"classId"`
		Search  string `query:"search"`
	}

	markQuery struct {
		StudentID string `query:"studentId"`
		SubjectID string `query:"subjectId"`
		TestID    string `query:"testId"`
	}
)

func registerSchoolAPI(g *echo.Group, svc school.Service, validate *validator.Validate) {
	api := schoolApi{svc: svc, validate: validate}

	g.GET("/classes", api.classes)
	g.GET("/students", api.students)
	g.GET("/students/:id/report", api.report)
	g.GET("/subjects", api.subjects)
	g.GET("/tests", api.tests)
	g.GET("/marks", api.marks)
	g.GET("/data-field-keys", api.keySets)
	g.POST("/dataset", api.importDataset)
}

func (api *schoolApi) classes(ctx echo.Context) error {
	classes, err := api.svc.Classes(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"classes": classes})
}

func (api *schoolApi) students(ctx echo.Context) error {
	var q classQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to classQuery")
	}
	students, err := api.svc.Students(ctx.Request().Context(), school.StudentFilter{ClassID: q.ClassID, Search: q.Search})
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"students": students})
}

func (api *schoolApi) report(ctx echo.Context) error {
	report, err := api.svc.Report(ctx.Request().Context(), ctx.Param("id"), ctx.QueryParam("testId"))
	if err != nil {
		return errors.Wrap(err, "building report")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *schoolApi) subjects(ctx echo.Context) error {
	classID := ctx.QueryParam("classId")
	subjects, err := api.svc.Subjects(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"subjects": subjects,
		"columns":  school.SubjectColumns(subjects), // rows for a subjects table
	})
}

func (api *schoolApi) tests(ctx echo.Context) error {
	tests, err := api.svc.Tests(ctx.Request().Context(), ctx.QueryParam("classId"))
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"tests": tests})
}

func (api *schoolApi) marks(ctx echo.Context) error {
	var q markQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to markQuery")
	}
	marks, err := api.svc.Marks(ctx.Request().Context(), school.MarkFilter(q))
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"marks": marks})
}

func (api *schoolApi) keySets(ctx echo.Context) error {
	sets, err := api.svc.KeySets(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying key sets")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"keys": sets})
}

// importDataset loads a YAML or JSON dataset (JSON being a subset of YAML).
func (api *schoolApi) importDataset(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxDatasetSize))
	if err != nil {
		return errors.Wrap(err, "reading dataset")
	}
	ds, err := school.ParseDataset(body)
	if err != nil {
		return core.NewValidationError(err)
	}
	if err = api.validate.Struct(ds); err != nil {
		return err
	}

	if err = api.svc.Import(ctx.Request().Context(), ds); err != nil {
		return errors.Wrap(err, "importing dataset")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"classes":  len(ds.Classes),
		"students": len(ds.Students),
		"subjects": len(ds.Subjects),
		"tests":    len(ds.Tests),
		"marks":    len(ds.Marks),
		"keySets":  len(ds.KeySets),
	})
}
