package echoapi

import (
	"math"
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/auth"
)

var kindStatus = map[core.Kind]int{
	core.KindInternal:       http.StatusInternalServerError,
	core.KindValidation:     http.StatusBadRequest,
	core.KindAuthentication: http.StatusUnauthorized,
	core.KindAuthorization:  http.StatusForbidden,
	core.KindNotFound:       http.StatusNotFound,
	core.KindRateLimit:      http.StatusTooManyRequests,
}

var httpStatusCode = map[int]string{
	http.StatusBadRequest:       core.CodeValidationError,
	http.StatusUnauthorized:     core.CodeNotAuthenticated,
	http.StatusForbidden:        core.CodeForbidden,
	http.StatusNotFound:         core.CodeRouteNotFound,
	http.StatusMethodNotAllowed: core.CodeMethodNotAllowed,
	http.StatusTooManyRequests:  core.CodeTooManyRequests,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		status := http.StatusInternalServerError
		res := apiResponse{Code: core.CodeInternalError}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			status = origErr.Code
			if code, ok := httpStatusCode[status]; ok {
				res.Code = code
			}
		case *core.ValidationError:
			status = http.StatusBadRequest
			res.Code = origErr.Code
			flds := origErr.Fields
			if vErrs, ok := errors.Cause(origErr.Err).(validator.ValidationErrors); ok && len(flds) == 0 {
				flds = core.TranslateFields(vErrs, translator)
			}
			if len(flds) > 0 {
				res.Fields = make(map[string]string, len(flds))
				for _, f := range flds {
					res.Fields[f.Field] = f.Error
				}
			}
		case *core.Error:
			status = kindStatus[origErr.Kind]
			res.Code = origErr.Code
			if origErr.RetryAfter > 0 {
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(origErr.RetryAfter.Seconds()))))
			}
		}

		if status >= http.StatusInternalServerError {
			state := auth.FromContext(ctx.Request().Context())
			args := []interface{}{err, map[string]interface{}{
				"code":      res.Code,
				"path":      ctx.Request().URL.Path,
				"requestId": ctx.Response().Header().Get(echo.HeaderXRequestID),
			}}
			if state.Account != nil {
				args = append(args, *state.Account)
			}
			logger.Error(http.StatusText(status), args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		res.Message = core.Message(translator, res.Code)
		if ctx.Echo().Debug && status >= http.StatusInternalServerError {
			res.Debug = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(status)
			} else {
				err = ctx.JSON(status, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
