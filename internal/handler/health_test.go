package handler

import (
	"net/http"
	"testing"
)

func TestHealth_LocalReport(t *testing.T) {
	g := newTestGateway(t)

	rec := g.do(t, http.MethodGet, "/api/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody(t, rec)

	if body["status"] != "UP" {
		t.Errorf("status = %v, want UP", body["status"])
	}
	if body["service"] != "Medical Care API Gateway" {
		t.Errorf("service = %v", body["service"])
	}
	if body["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", body["version"])
	}
	if body["environment"] != "production" {
		t.Errorf("environment = %v, want production", body["environment"])
	}
	if uptime, ok := body["uptime"].(float64); !ok || uptime < 0 {
		t.Errorf("uptime = %v, want a non-negative number", body["uptime"])
	}
	if mem, ok := body["memory"].(map[string]any); !ok || mem["heapAllocMB"] == nil {
		t.Errorf("memory = %v, want runtime stats", body["memory"])
	}
	assertTimestamp(t, body, "timestamp")

	backend, _ := body["backend"].(map[string]any)
	if backend["connected"] != false {
		t.Errorf("backend.connected = %v, want false", backend["connected"])
	}
	if backend["url"] != "Not configured" {
		t.Errorf("backend.url = %v, want Not configured", backend["url"])
	}

	services, _ := body["services"].(map[string]any)
	want := []string{"user-service", "application-service", "notification-service", "file-service", "audit-service"}
	if len(services) != len(want) {
		t.Errorf("services = %v, want exactly %d entries", services, len(want))
	}
	for _, name := range want {
		if services[name] != "MOCK" {
			t.Errorf("services[%s] = %v, want MOCK", name, services[name])
		}
	}
}

func TestHealth_BackendDownReportsURL(t *testing.T) {
	backend := newJSONBackend(t, http.StatusServiceUnavailable, `{"status":"DOWN"}`)
	g := newTestGateway(t, withBackend(backend.URL), withDevelopment())

	rec := g.do(t, http.MethodGet, "/api/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody(t, rec)
	if body["status"] != "UP" {
		t.Errorf("status = %v, want the local UP report", body["status"])
	}
	if body["environment"] != "development" {
		t.Errorf("environment = %v, want development", body["environment"])
	}
	b, _ := body["backend"].(map[string]any)
	if b["url"] != backend.URL {
		t.Errorf("backend.url = %v, want %s", b["url"], backend.URL)
	}
	if b["connected"] != false {
		t.Errorf("backend.connected = %v, want false", b["connected"])
	}
	if call := backend.lastCall(); call.Path != "/health" {
		t.Errorf("backend path = %q, want /health", call.Path)
	}
}

func TestHealth_RelaysBackendReport(t *testing.T) {
	backend := newJSONBackend(t, http.StatusOK, `{"status":"UP","components":{"db":"UP"}}`)
	g := newTestGateway(t, withBackend(backend.URL))

	rec := g.do(t, http.MethodGet, "/api/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeBody(t, rec)
	if _, ok := body["components"]; !ok {
		t.Errorf("body = %v, want the backend report", body)
	}
	if _, ok := body["success"]; ok {
		t.Error("backend health report must not be wrapped")
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	backend := newJSONBackend(t, http.StatusOK, `{"status":"UP"}`)
	g := newTestGateway(t, withBackend(backend.URL))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := g.do(t, method, "/api/health", "")

			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
			}
			if body := decodeBody(t, rec); body["error"] != "Method not allowed" {
				t.Errorf("error = %v", body["error"])
			}
		})
	}
	if call := backend.lastCall(); call.Method != "" {
		t.Errorf("backend saw %s, want no call for rejected methods", call.Method)
	}
}

func TestFavicon(t *testing.T) {
	g := newTestGateway(t)

	for _, path := range []string{"/api/favicon", "/favicon.ico"} {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodHead} {
			t.Run(method+" "+path, func(t *testing.T) {
				rec := g.do(t, method, path, "")

				if rec.Code != http.StatusNoContent {
					t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
				}
				if rec.Body.Len() != 0 {
					t.Errorf("body = %q, want empty", rec.Body.String())
				}
			})
		}
	}
}
