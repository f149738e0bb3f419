package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/infast/crm/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-created_at`. Fields not in allowed are dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed []string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !contains(allowed, field) {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// boolParam returns nil when the query param is absent or not a boolean.
func boolParam(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

// dateParam parses an optional YYYY-MM-DD query param.
func dateParam(ctx echo.Context, name string) (*core.Date, error) {
	d, err := core.ParseDate(ctx.QueryParam(name))
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: name, Error: err.Error()})
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}
