// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"errors"
	"net/http"

	"courier/engine"
	"courier/transport"

	"github.com/labstack/echo/v4"
)

// Handler serves the HTTP surface of a delivery engine.
type Handler struct {
	engine       *engine.Engine
	connectivity *transport.Switch
}

func New(e *engine.Engine, sw *transport.Switch) *Handler {
	return &Handler{engine: e, connectivity: sw}
}

var errInvalidPayload = &echo.HTTPError{
	Code:    http.StatusBadRequest,
	Message: "Invalid request payload, please ensure it is well-formed and has content-type application/json header",
}

// engineError maps engine errors to HTTP errors.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrEmptyText):
		return &echo.HTTPError{Code: http.StatusBadRequest, Message: "text field is required"}
	case errors.Is(err, engine.ErrMissingRemoteID):
		return &echo.HTTPError{Code: http.StatusBadRequest, Message: "remote_id field is required"}
	case errors.Is(err, engine.ErrNotFound):
		return &echo.HTTPError{Code: http.StatusNotFound, Message: "Message not found"}
	case errors.Is(err, engine.ErrNotRetryable):
		return &echo.HTTPError{Code: http.StatusConflict, Message: "Only failed messages can be retried"}
	}
	c.Logger().Errorf("Unexpected engine error: %v", err)
	return echo.ErrInternalServerError
}
