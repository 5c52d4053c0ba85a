package handler

import (
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"medcare-gateway/internal/model"
)

// newGatewayRequest snapshots the inbound request. The body is read once here;
// BodyLimit errors surface as *echo.HTTPError in the returned error chain.
func newGatewayRequest(c echo.Context) (*model.GatewayRequest, error) {
	r := c.Request()

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	return &model.GatewayRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
		RemoteIP: peerIP(r.RemoteAddr),
	}, nil
}

// peerIP strips the port from a RemoteAddr.
func peerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
