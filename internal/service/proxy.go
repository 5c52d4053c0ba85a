// Package service implements the proxy-or-fallback decision for backend calls.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"medcare-gateway/internal/client"
	"medcare-gateway/internal/config"
	"medcare-gateway/internal/metrics"
	"medcare-gateway/internal/model"
)

// Failure classes for an Unavailable outcome.
var (
	ErrNotConfigured    = errors.New("backend not configured")
	ErrTimeout          = errors.New("backend did not respond in time")
	ErrNetwork          = errors.New("unable to connect to backend")
	ErrUpstreamStatus   = errors.New("backend responded with non-2xx status")
	ErrUpstreamBody     = errors.New("backend response is not valid JSON")
	ErrUpstreamTooLarge = errors.New("backend response exceeds the size limit")
)

// Outcome labels recorded in metrics.
const (
	OutcomeForwarded      = "forwarded"
	OutcomeNotConfigured  = "not_configured"
	OutcomeTimeout        = "timeout"
	OutcomeNetworkError   = "network_error"
	OutcomeUpstreamStatus = "upstream_status"
	OutcomeInvalidBody    = "invalid_body"
	OutcomeBodyTooLarge   = "body_too_large"
)

// forwardableRequestHeaders are the only inbound headers passed to the backend.
var forwardableRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Authorization",
	"User-Agent",
	"X-Request-Id",
	"X-Requested-With",
}

// bodyMethods are the methods whose payload is forwarded.
var bodyMethods = map[string]bool{
	http.MethodPost:  true,
	http.MethodPut:   true,
	http.MethodPatch: true,
}

const userAgent = "medcare-gateway/1.0"

// ProxyService decides per request whether the backend can serve it.
type ProxyService struct {
	client  *client.BackendClient
	logger  *slog.Logger
	metrics *metrics.Metrics
	baseURL string
	timeout time.Duration
}

// NewProxyService creates a ProxyService. With no backend configured every
// attempt returns Unavailable without touching the network.
// The metrics parameter is optional.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		metrics: m,
		baseURL: strings.TrimRight(cfg.Upstream.BaseURL, "/"),
		timeout: cfg.Upstream.Timeout(),
	}
}

// Enabled reports whether a backend is configured.
func (s *ProxyService) Enabled() bool {
	return s.baseURL != ""
}

// BaseURL returns the configured backend base URL, or empty.
func (s *ProxyService) BaseURL() string {
	return s.baseURL
}

// Attempt forwards req to baseURL+endpoint and classifies the result.
// It never returns an error: every failure becomes an Unavailable outcome,
// which callers handle by serving a local response.
func (s *ProxyService) Attempt(ctx context.Context, req *model.GatewayRequest, endpoint string) model.ProxyOutcome {
	outcome := s.attempt(ctx, req, endpoint)

	label := outcomeLabel(outcome)
	if s.metrics != nil {
		s.metrics.ProxyOutcomes.WithLabelValues(metrics.NormalizePath(endpoint), label).Inc()
	}

	switch {
	case outcome.IsForwarded():
	case label == OutcomeNotConfigured:
		s.logger.Debug("no backend configured, using local fallback", "endpoint", endpoint)
	default:
		s.logger.Warn("backend unavailable, using local fallback",
			"endpoint", endpoint,
			"method", req.Method,
			"reason", outcome.Reason(),
			"err", outcome.Err(),
		)
	}

	return outcome
}

func (s *ProxyService) attempt(ctx context.Context, req *model.GatewayRequest, endpoint string) model.ProxyOutcome {
	if !s.Enabled() {
		return model.Unavailable("not configured", ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader
	if bodyMethods[req.Method] && req.HasBody() {
		body = bytes.NewReader(req.Body)
	}

	resp, err := s.client.Send(ctx, req.Method, s.buildUpstreamURL(endpoint, req.RawQuery), s.buildHeaders(req), body)
	if err != nil {
		if errors.Is(err, client.ErrBodyTooLarge) {
			return model.Unavailable("upstream body too large", fmt.Errorf("%w: %w", ErrUpstreamTooLarge, err))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return model.Unavailable("timeout", fmt.Errorf("%w: %w", ErrTimeout, err))
		}
		return model.Unavailable("network error", fmt.Errorf("%w: %w", ErrNetwork, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Unavailable(
			fmt.Sprintf("upstream status %d", resp.StatusCode),
			fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode),
		)
	}

	data, err := decodeJSON(resp.Body)
	if err != nil {
		return model.Unavailable("invalid upstream body", fmt.Errorf("%w: %w", ErrUpstreamBody, err))
	}
	if data == nil {
		return model.Unavailable("invalid upstream body", fmt.Errorf("%w: null payload", ErrUpstreamBody))
	}

	return model.Forwarded(data)
}

func (s *ProxyService) buildUpstreamURL(endpoint, rawQuery string) string {
	u := s.baseURL + endpoint
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

func (s *ProxyService) buildHeaders(req *model.GatewayRequest) http.Header {
	dst := make(http.Header)
	for _, key := range forwardableRequestHeaders {
		if vals := req.Header.Values(key); len(vals) > 0 {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	if dst.Get("User-Agent") == "" {
		dst.Set("User-Agent", userAgent)
	}
	if req.RemoteIP != "" {
		if prior := req.Header.Get("X-Forwarded-For"); prior != "" {
			dst.Set("X-Forwarded-For", prior+", "+req.RemoteIP)
		} else {
			dst.Set("X-Forwarded-For", req.RemoteIP)
		}
	}
	dst.Set("Content-Type", "application/json")
	return dst
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number
// so upstream IDs survive re-encoding unchanged.
func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return data, nil
}

func outcomeLabel(o model.ProxyOutcome) string {
	if o.IsForwarded() {
		return OutcomeForwarded
	}
	err := o.Err()
	switch {
	case errors.Is(err, ErrNotConfigured):
		return OutcomeNotConfigured
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrUpstreamStatus):
		return OutcomeUpstreamStatus
	case errors.Is(err, ErrUpstreamBody):
		return OutcomeInvalidBody
	case errors.Is(err, ErrUpstreamTooLarge):
		return OutcomeBodyTooLarge
	default:
		return OutcomeNetworkError
	}
}
