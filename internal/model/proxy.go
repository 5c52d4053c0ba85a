// Package model defines shared types for the gateway.
package model

import (
	"net/http"
)

// GatewayRequest is an inbound call as seen by the dispatcher. The body is read
// once at the edge so the proxy attempt and the local fallback see the same bytes.
type GatewayRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
	RemoteIP string
}

// HasBody reports whether the request carried a non-empty payload.
func (r *GatewayRequest) HasBody() bool {
	return len(r.Body) > 0
}

// ProxyOutcome is the result of a proxy attempt: either Forwarded with the
// decoded upstream payload, or Unavailable with a reason. Unavailable is a
// signal to fall back to local handling, not a failure of the gateway.
type ProxyOutcome struct {
	forwarded bool
	data      any
	reason    string
	err       error
}

// Forwarded wraps a decoded upstream payload.
func Forwarded(data any) ProxyOutcome {
	return ProxyOutcome{forwarded: true, data: data}
}

// Unavailable records why the upstream could not serve the request.
func Unavailable(reason string, err error) ProxyOutcome {
	return ProxyOutcome{reason: reason, err: err}
}

// IsForwarded reports whether the upstream answered successfully.
func (o ProxyOutcome) IsForwarded() bool { return o.forwarded }

// Data returns the upstream payload; nil unless forwarded.
func (o ProxyOutcome) Data() any { return o.data }

// Reason returns a short description of why the upstream was not used.
func (o ProxyOutcome) Reason() string { return o.reason }

// Err returns the classified cause of an Unavailable outcome.
func (o ProxyOutcome) Err() error { return o.err }
