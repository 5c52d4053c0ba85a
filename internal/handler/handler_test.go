package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"medcare-gateway/internal/client"
	"medcare-gateway/internal/config"
	"medcare-gateway/internal/metrics"
	"medcare-gateway/internal/middleware"
	"medcare-gateway/internal/resource"
	"medcare-gateway/internal/response"
	"medcare-gateway/internal/service"
)

// testGateway is a fully routed echo instance backed by embedded seeds.
type testGateway struct {
	e       *echo.Echo
	cfg     *config.Config
	metrics *metrics.Metrics
	catalog *resource.Catalog
}

type gatewayOption func(*config.Config)

func withBackend(url string) gatewayOption {
	return func(c *config.Config) { c.Upstream.BaseURL = url }
}

func withDevelopment() gatewayOption {
	return func(c *config.Config) { c.App.Environment = config.EnvDevelopment }
}

func withMetrics() gatewayOption {
	return func(c *config.Config) { c.Metrics = config.MetricsConfig{Enabled: true, Path: "/metrics"} }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T, opts ...gatewayOption) *testGateway {
	t.Helper()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{TimeoutSeconds: 10, IdleConnections: 10},
		App:      config.AppConfig{Environment: config.EnvProduction},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := discardLogger()
	m := metrics.New()
	envelope := response.NewBuilder(cfg.App.Development())
	proxy := service.NewProxyService(client.NewBackendClient(cfg, logger, m), cfg, logger, m)

	catalog, err := resource.NewCatalog("", logger)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(envelope, logger)
	e.Use(middleware.CORS())
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
	}

	RegisterRoutes(e,
		NewDispatchers(proxy, catalog, resource.NewIDGenerator(), envelope, logger),
		NewHealthHandler(proxy, envelope, cfg, "1.2.3"),
	)
	RegisterMetrics(e, cfg, m)

	return &testGateway{e: e, cfg: cfg, metrics: m, catalog: catalog}
}

func (g *testGateway) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return g.serve(t, newRequest(method, path, body))
}

func (g *testGateway) serve(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	g.e.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, path, body string) *http.Request {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return body
}

func assertTimestamp(t *testing.T, body map[string]any, key string) time.Time {
	t.Helper()
	raw, ok := body[key].(string)
	if !ok {
		t.Fatalf("%s = %v, want a string", key, body[key])
	}
	ts, err := time.Parse(response.TimestampLayout, raw)
	if err != nil {
		t.Fatalf("%s = %q does not parse: %v", key, raw, err)
	}
	return ts
}

// backendCall is what a jsonBackend saw on its most recent request.
type backendCall struct {
	Method string
	Path   string
	Query  string
	Body   string
	Header http.Header
}

// jsonBackend serves a fixed status and payload and records the last request.
type jsonBackend struct {
	*httptest.Server

	mu   sync.Mutex
	last backendCall
}

func newJSONBackend(t *testing.T, status int, payload string) *jsonBackend {
	t.Helper()
	b := &jsonBackend{}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.last = backendCall{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(raw),
			Header: r.Header.Clone(),
		}
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *jsonBackend) lastCall() backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
