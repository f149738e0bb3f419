package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/dashboard"
)

type dashboardApi struct {
	svc   *dashboard.Service
	clock core.Clock
}

func registerDashboardAPI(g *echo.Group, svc *dashboard.Service, clock core.Clock) {
	api := dashboardApi{svc: svc, clock: clock}

	g.GET("", api.summary)
}

// summary defaults to today; `?date=YYYY-MM-DD` shows another day.
func (api *dashboardApi) summary(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	day := api.clock.Now()
	if date != nil {
		day = date.Time
	}

	sum, err := api.svc.Summary(ctx.Request().Context(), day)
	if err != nil {
		return errors.Wrap(err, "building dashboard summary")
	}
	return ctx.JSON(http.StatusOK, sum)
}
