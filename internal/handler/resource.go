package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"medcare-gateway/internal/model"
	"medcare-gateway/internal/resource"
	"medcare-gateway/internal/response"
	"medcare-gateway/internal/service"
)

const msgMethodNotAllowed = "Method not allowed"

// Dispatcher serves one resource endpoint: it tries the backend first and
// answers from the seed catalog when the backend is unavailable.
type Dispatcher struct {
	res      resource.Resource
	proxy    *service.ProxyService
	catalog  *resource.Catalog
	ids      *resource.IDGenerator
	envelope *response.Builder
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher for res.
func NewDispatcher(
	res resource.Resource,
	proxy *service.ProxyService,
	catalog *resource.Catalog,
	ids *resource.IDGenerator,
	envelope *response.Builder,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		res:      res,
		proxy:    proxy,
		catalog:  catalog,
		ids:      ids,
		envelope: envelope,
		logger:   logger.With("component", "dispatcher", "resource", res.Name),
	}
}

// NewDispatchers creates one Dispatcher per resource definition, sharing
// the proxy, catalog and ID generator.
func NewDispatchers(
	proxy *service.ProxyService,
	catalog *resource.Catalog,
	ids *resource.IDGenerator,
	envelope *response.Builder,
	logger *slog.Logger,
) []*Dispatcher {
	defs := resource.Definitions()
	out := make([]*Dispatcher, 0, len(defs))
	for _, res := range defs {
		out = append(out, NewDispatcher(res, proxy, catalog, ids, envelope, logger))
	}
	return out
}

// Endpoint returns the route path served by d.
func (d *Dispatcher) Endpoint() string {
	return d.res.Endpoint
}

// Handle is the echo handler for the resource endpoint. Every method is
// offered to the backend first; only GET and POST have local fallbacks.
func (d *Dispatcher) Handle(c echo.Context) error {
	req, err := newGatewayRequest(c)
	if err != nil {
		return err
	}

	outcome := d.proxy.Attempt(c.Request().Context(), req, d.res.Endpoint)
	if outcome.IsForwarded() {
		return d.forwarded(c, outcome.Data())
	}

	switch req.Method {
	case http.MethodGet:
		items := d.catalog.Seeds(d.res.Name)
		return c.JSON(http.StatusOK, d.envelope.List(items, d.res.MockListMessage()))
	case http.MethodPost:
		return d.create(c, req)
	default:
		return c.JSON(http.StatusMethodNotAllowed, d.envelope.Failure(msgMethodNotAllowed, nil))
	}
}

// forwarded relays backend data. Payloads already shaped as an envelope pass
// through untouched; anything else is wrapped.
func (d *Dispatcher) forwarded(c echo.Context, data any) error {
	if response.IsEnvelope(data) {
		return c.JSON(http.StatusOK, data)
	}
	return c.JSON(http.StatusOK, d.envelope.Success(data, ""))
}

func (d *Dispatcher) create(c echo.Context, req *model.GatewayRequest) error {
	fields, err := decodeObject(req.Body)
	if err != nil {
		d.logger.Debug("rejected create payload", "err", err)
		return c.JSON(http.StatusBadRequest, d.envelope.Failure(d.res.InvalidMessage, err))
	}

	record := d.res.NewRecord(fields, d.ids.Next(), d.envelope.Now(), req)
	return c.JSON(http.StatusCreated, d.envelope.Success(record, d.res.MockCreateMessage()))
}

// decodeObject parses body as exactly one JSON object.
func decodeObject(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("request body is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, errors.Wrap(err, "decode request body")
	}
	if fields == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if dec.More() {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}
