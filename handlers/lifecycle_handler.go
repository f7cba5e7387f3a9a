// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PersistHandler godoc
// @Summary      Persist the message log
// @Description  Writes the current log synchronously. Hosts call it on backgrounding or shutdown signals.
// @Tags         lifecycle
// @Produce      json
// @Success      200 {object} GenericResponse "Log persisted"
// @Failure      503 {object} echo.HTTPError  "Persistence unavailable"
// @Router       /v1/lifecycle/persist [post]
func (h *Handler) PersistHandler(c echo.Context) error {
	if err := h.engine.Persist(c.Request().Context()); err != nil {
		c.Logger().Errorf("Persist failed: %v", err)
		return &echo.HTTPError{
			Code:    http.StatusServiceUnavailable,
			Message: "Failed to persist messages, in-memory state is unchanged",
		}
	}
	return c.JSON(http.StatusOK, GenericResponse{Message: "Messages persisted"})
}
