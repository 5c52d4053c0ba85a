package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"medcare-gateway/internal/config"
	"medcare-gateway/internal/resource"
	"medcare-gateway/internal/response"
	"medcare-gateway/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

const (
	serviceName      = "Medical Care API Gateway"
	healthEndpoint   = "/health"
	backendNotSet    = "Not configured"
	serviceModeMock  = "MOCK"
	healthStatusUp   = "UP"
	bytesPerMegabyte = 1 << 20
)

// HealthStatus is the local health report served when the backend cannot
// answer /health itself.
type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Uptime      float64           `json:"uptime"`
	Memory      MemoryStatus      `json:"memory"`
	Backend     BackendStatus     `json:"backend"`
	Services    map[string]string `json:"services"`
}

// MemoryStatus summarizes Go runtime memory usage in megabytes.
type MemoryStatus struct {
	HeapAllocMB float64 `json:"heapAllocMB"`
	HeapSysMB   float64 `json:"heapSysMB"`
	SysMB       float64 `json:"sysMB"`
	NumGC       uint32  `json:"numGC"`
	Goroutines  int     `json:"goroutines"`
}

// BackendStatus reports the backend as seen by the gateway.
type BackendStatus struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
}

// HealthHandler serves the health and favicon endpoints.
type HealthHandler struct {
	proxy    *service.ProxyService
	envelope *response.Builder
	cfg      *config.Config
	version  Version
	started  time.Time
}

// NewHealthHandler creates a HealthHandler. Uptime is measured from here.
func NewHealthHandler(proxy *service.ProxyService, envelope *response.Builder, cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{
		proxy:    proxy,
		envelope: envelope,
		cfg:      cfg,
		version:  v,
		started:  time.Now(),
	}
}

// Health relays the backend's own /health payload when it answers, and a
// local report otherwise. Only GET is served.
func (h *HealthHandler) Health(c echo.Context) error {
	if c.Request().Method != http.MethodGet {
		return c.JSON(http.StatusMethodNotAllowed, h.envelope.Failure(msgMethodNotAllowed, nil))
	}

	req, err := newGatewayRequest(c)
	if err != nil {
		return err
	}

	outcome := h.proxy.Attempt(c.Request().Context(), req, healthEndpoint)
	if outcome.IsForwarded() {
		return c.JSON(http.StatusOK, outcome.Data())
	}
	return c.JSON(http.StatusOK, h.localStatus())
}

// Favicon answers browser favicon requests with an empty 204.
func (h *HealthHandler) Favicon(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *HealthHandler) localStatus() HealthStatus {
	backendURL := h.proxy.BaseURL()
	if backendURL == "" {
		backendURL = backendNotSet
	}

	services := make(map[string]string, len(resource.Services()))
	for _, name := range resource.Services() {
		services[name] = serviceModeMock
	}

	return HealthStatus{
		Status:      healthStatusUp,
		Timestamp:   h.envelope.Now(),
		Service:     serviceName,
		Version:     string(h.version),
		Environment: h.cfg.App.Environment,
		Uptime:      time.Since(h.started).Seconds(),
		Memory:      readMemory(),
		Backend:     BackendStatus{Connected: false, URL: backendURL},
		Services:    services,
	}
}

func readMemory() MemoryStatus {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemoryStatus{
		HeapAllocMB: float64(ms.HeapAlloc) / bytesPerMegabyte,
		HeapSysMB:   float64(ms.HeapSys) / bytesPerMegabyte,
		SysMB:       float64(ms.Sys) / bytesPerMegabyte,
		NumGC:       ms.NumGC,
		Goroutines:  runtime.NumGoroutine(),
	}
}
