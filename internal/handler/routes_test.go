package handler

import (
	"net/http"
	"strings"
	"testing"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	g := newTestGateway(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"GET /api/users", http.MethodGet, "/api/users", "", http.StatusOK},
		{"GET /api/applications", http.MethodGet, "/api/applications", "", http.StatusOK},
		{"GET /api/notifications", http.MethodGet, "/api/notifications", "", http.StatusOK},
		{"GET /api/files", http.MethodGet, "/api/files", "", http.StatusOK},
		{"GET /api/audit", http.MethodGet, "/api/audit", "", http.StatusOK},
		{"POST /api/audit", http.MethodPost, "/api/audit", `{"action":"LOGIN"}`, http.StatusCreated},
		{"GET /api/health", http.MethodGet, "/api/health", "", http.StatusOK},
		{"GET /api/favicon", http.MethodGet, "/api/favicon", "", http.StatusNoContent},
		{"OPTIONS /api/users", http.MethodOptions, "/api/users", "", http.StatusNoContent},
		{"OPTIONS unknown path", http.MethodOptions, "/api/unknown", "", http.StatusNoContent},
		{"GET unknown returns 404", http.MethodGet, "/unknown", "", http.StatusNotFound},
		{"GET nested resource path returns 404", http.MethodGet, "/api/users/1", "", http.StatusNotFound},
		{"metrics disabled", http.MethodGet, "/metrics", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := g.do(t, tt.method, tt.path, tt.body)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
			}
		})
	}
}

func TestRegisterRoutes_NotFoundEnvelope(t *testing.T) {
	g := newTestGateway(t)

	rec := g.do(t, http.MethodGet, "/api/unknown", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["error"] != "Not Found" {
		t.Errorf("error = %v, want Not Found", body["error"])
	}
	assertTimestamp(t, body, "timestamp")
}

func TestRegisterMetrics(t *testing.T) {
	g := newTestGateway(t, withMetrics())

	g.do(t, http.MethodGet, "/api/users", "")
	rec := g.do(t, http.MethodGet, "/metrics", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	out := rec.Body.String()
	for _, want := range []string{
		"medcare_gateway_http_requests_total",
		`medcare_gateway_proxy_outcomes_total{endpoint="/api/users",outcome="not_configured"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
