package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"medcare-gateway/internal/response"
)

const msgInternalError = "Internal server error"

// NewErrorHandler returns an echo.HTTPErrorHandler that renders errors which
// escape handlers as failure envelopes. *echo.HTTPError keeps its status and
// message; anything else is a 500 whose detail is only exposed in debug mode.
func NewErrorHandler(envelope *response.Builder, logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var env response.Envelope

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			env = envelope.Failure(httpErrorMessage(he), nil)
		} else {
			logger.Error("unhandled error",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"err", err,
			)
			var detail error
			if envelope.Debug() {
				detail = err
			}
			env = envelope.Failure(msgInternalError, detail)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, env)
		}
		if werr != nil {
			logger.Error("write error response", "err", werr)
		}
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}
