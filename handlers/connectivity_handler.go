// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetConnectivityHandler godoc
// @Summary      Connectivity state
// @Tags         connectivity
// @Produce      json
// @Success      200 {object} ConnectivityResponse
// @Router       /v1/connectivity [get]
func (h *Handler) GetConnectivityHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, ConnectivityResponse{Offline: h.connectivity.Offline()})
}

// SetConnectivityHandler godoc
// @Summary      Set connectivity
// @Description  Engages or releases the offline switch. Sends started afterwards observe the new state.
// @Tags         connectivity
// @Accept       json
// @Produce      json
// @Param        connectivityRequest  body  ConnectivityRequest  true  "Connectivity payload"
// @Success      200 {object} ConnectivityResponse
// @Failure      400 {object} echo.HTTPError "Bad request, missing offline field"
// @Router       /v1/connectivity [put]
func (h *Handler) SetConnectivityHandler(c echo.Context) error {
	var req ConnectivityRequest
	if err := c.Bind(&req); err != nil {
		c.Logger().Error("Invalid connectivity payload:", err)
		return errInvalidPayload
	}
	if req.Offline == nil {
		return &echo.HTTPError{Code: http.StatusBadRequest, Message: "offline field is required"}
	}

	h.connectivity.SetOffline(*req.Offline)
	c.Logger().Infof("Connectivity set: offline=%v", *req.Offline)
	return c.JSON(http.StatusOK, ConnectivityResponse{Offline: *req.Offline})
}

// ToggleConnectivityHandler godoc
// @Summary      Toggle connectivity
// @Tags         connectivity
// @Produce      json
// @Success      200 {object} ConnectivityResponse
// @Router       /v1/connectivity/toggle [post]
func (h *Handler) ToggleConnectivityHandler(c echo.Context) error {
	offline := h.connectivity.Toggle()
	c.Logger().Infof("Connectivity toggled: offline=%v", offline)
	return c.JSON(http.StatusOK, ConnectivityResponse{Offline: offline})
}
