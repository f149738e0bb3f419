package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/lead"
)

type leadApi struct {
	svc *lead.Service
}

func registerLeadAPI(g *echo.Group, svc *lead.Service) {
	api := leadApi{svc: svc}

	g.GET("", api.query)
	g.POST("", api.create)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.DELETE("/:id", api.destroy)
	g.POST("/:id/convert", api.convert)
}

func (api *leadApi) convert(ctx echo.Context) error {
	std, err := api.svc.Convert(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "converting lead")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *leadApi) create(ctx echo.Context) error {
	var data lead.NewLead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLead")
	}

	ld, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lead")
	}
	return ctx.JSON(http.StatusCreated, ld)
}

func (api *leadApi) query(ctx echo.Context) error {
	filter := &lead.QueryFilter{
		GroupID:    core.CleanString(ctx.QueryParam("group_id")),
		LeadStatus: core.CleanString(ctx.QueryParam("lead_status")),
		Search:     ctx.QueryParam("search"),
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, lead.OrderingFields)

	leads, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying leads")
	}
	if leads == nil {
		leads = []lead.Lead{}
	}
	return ctx.JSON(http.StatusOK, leads)
}

func (api *leadApi) retrieve(ctx echo.Context) error {
	ld, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lead by ID")
	}
	return ctx.JSON(http.StatusOK, ld)
}

func (api *leadApi) update(ctx echo.Context) error {
	var data lead.UpdateLead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLead")
	}

	ld, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lead")
	}
	return ctx.JSON(http.StatusOK, ld)
}

func (api *leadApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lead")
	}
	return ctx.NoContent(http.StatusNoContent)
}
