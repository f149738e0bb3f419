package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/infast/crm/core"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
)

// errorStatus maps a domain error to its HTTP status and response body.
// ok is false for unexpected errors, which become a 500.
func errorStatus(err error) (code int, body interface{}, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message, true
		}
		if inner, isHTTP := cause.Internal.(*echo.HTTPError); isHTTP {
			cause = inner
		}
		return cause.Code, cause.Message, true
	case validator.ValidationErrors:
		fields := make(map[string]string, len(cause))
		for _, fe := range cause {
			fields[fe.Field()] = fe.Translate(core.Translator)
		}
		return http.StatusBadRequest, fields, true
	case *core.ValidationError:
		if cause.Fields == nil {
			return http.StatusBadRequest, cause.Error(), true
		}
		fields := make(map[string]string, len(cause.Fields))
		for _, fe := range cause.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true
	case *core.MissingInputError:
		return http.StatusBadRequest, map[string]string{cause.Field: cause.Error()}, true
	case *core.NotFoundError:
		return http.StatusNotFound, cause.Error(), true
	case *core.StateError, *core.ConflictError:
		return http.StatusConflict, cause.Error(), true
	case *core.EnrollmentError:
		return http.StatusUnprocessableEntity, echo.Map{
			"error":    cause.Error(),
			"required": cause.Required,
			"current":  cause.Current,
		}, true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler renders domain errors as JSON. Unexpected errors are reported with the
// operator attached, and a core shutdown error stops the server through signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, jwtConf middleware.JWTConfig, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := errorStatus(err)
		if !ok {
			var op core.Operator
			if claims, cErr := getContextClaims(ctx, jwtConf); cErr == nil {
				op.Username = claims.Username
			}
			msg := http.StatusText(code)
			logger.Error(msg, errors.Wrap(err, msg), op)

			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				body = err.Error()
			}
		}
		if s, isStr := body.(string); isStr {
			body = echo.Map{"error": s}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
