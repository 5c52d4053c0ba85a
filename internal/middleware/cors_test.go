package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCORS_Preflight(t *testing.T) {
	e := echo.New()
	e.Use(CORS())

	reached := false
	e.Any("/api/users", func(c echo.Context) error {
		reached = true
		return c.String(http.StatusOK, "handler")
	})

	paths := []string{"/api/users", "/api/unknown"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(http.MethodOptions, path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
			if reached {
				t.Error("preflight should not reach the route handler")
			}
			assertCORSHeaders(t, rec.Header())
		})
	}
}

func TestCORS_SimpleRequest(t *testing.T) {
	e := echo.New()
	e.Use(CORS())
	e.GET("/api/users", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	assertCORSHeaders(t, rec.Header())
}

func assertCORSHeaders(t *testing.T, h http.Header) {
	t.Helper()
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization, X-Requested-With",
		"Access-Control-Max-Age":       "86400",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}
