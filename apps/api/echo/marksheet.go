package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core/marksheet"
)

type (
	marksheetApi struct {
		svc      marksheet.Service
		validate *validator.Validate
	}

	templateQuery struct {
		ClassID string `query:"classId"`
		Search  string `query:"search"`
	}

	EditsRequest struct {
		Operations []marksheet.Operation `json:"operations"`
	}
)

func registerMarksheetAPI(g *echo.Group, svc marksheet.Service, validate *validator.Validate) {
	api := marksheetApi{svc: svc, validate: validate}

	tg := g.Group("/marksheet-templates")
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.PUT("", api.update)

	// detail endpoints
	dg := tg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.GET("/export", api.export)
	dg.GET("/preview", api.preview, noStoreMiddleware())
	dg.POST("/edits", api.edits)
	dg.POST("/send", api.send)
}

// Handlers

func (api *marksheetApi) query(ctx echo.Context) error {
	var q templateQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to templateQuery")
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	templates, err := api.svc.Query(
		ctx.Request().Context(),
		&marksheet.QueryFilter{ClassID: q.ClassID, Search: q.Search},
		ordering.Orderings,
	)
	if err != nil {
		return errors.Wrap(err, "querying templates")
	}
	if templates == nil {
		templates = []marksheet.Template{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"templates": templates})
}

func (api *marksheetApi) create(ctx echo.Context) error {
	var data marksheet.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tpl, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating template")
	}
	return ctx.JSON(http.StatusCreated, tpl)
}

func (api *marksheetApi) update(ctx echo.Context) error {
	var data marksheet.UpdateTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTemplate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	tpl, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *marksheetApi) retrieve(ctx echo.Context) error {
	tpl, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *marksheetApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting template")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *marksheetApi) export(ctx echo.Context) error {
	html, err := api.svc.Export(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "exporting template")
	}
	return ctx.HTML(http.StatusOK, html)
}

func (api *marksheetApi) preview(ctx echo.Context) error {
	var data marksheet.PreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PreviewRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	rendering, err := api.svc.Preview(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "previewing template")
	}
	if len(rendering.FormulaErrors) > 0 {
		ctx.Response().Header().Set("X-Formula-Errors", rendering.FormulaErrors[0].Error())
	}
	return ctx.HTML(http.StatusOK, rendering.HTML)
}

func (api *marksheetApi) edits(ctx echo.Context) error {
	var data EditsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditsRequest")
	}

	tpl, err := api.svc.ApplyEdits(ctx.Request().Context(), ctx.Param("id"), data.Operations)
	if err != nil {
		return errors.Wrap(err, "applying edits")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *marksheetApi) send(ctx echo.Context) error {
	var data marksheet.SendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRequest")
	}

	n, err := api.svc.Send(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "sending marksheets")
	}
	return ctx.JSON(http.StatusAccepted, echo.Map{"queued": n})
}
