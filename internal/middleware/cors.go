package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORS policy values applied to every response.
var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodDelete, http.MethodPatch, http.MethodOptions,
	}, ", ")
	corsAllowHeaders = strings.Join([]string{
		echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestedWith,
	}, ", ")
)

const corsMaxAge = "86400"

// CORS returns an Echo middleware that sets permissive cross-origin headers on
// every response, whether or not the request carries an Origin, and answers
// preflight OPTIONS requests with 204 and an empty body without reaching the
// route handler.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			h.Set(echo.HeaderAccessControlMaxAge, corsMaxAge)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
