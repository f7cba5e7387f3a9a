// SPDX-License-Identifier: GPL-3.0-only

package routes

import (
	"courier/commons"
	"courier/handlers"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *handlers.Handler) {
	commons.Logger.Debug("Registering v1 routes")
	api_v1 := e.Group("/v1")
	api_v1.POST("/messages", h.SendMessageHandler)
	api_v1.GET("/messages", h.GetMessagesHandler)
	api_v1.POST("/messages/inbound", h.ReceiveMessageHandler)
	api_v1.POST("/messages/:local_id/retry", h.RetryMessageHandler)
	api_v1.POST("/messages/:local_id/resubmit", h.ResubmitMessageHandler)
	api_v1.GET("/connectivity", h.GetConnectivityHandler)
	api_v1.PUT("/connectivity", h.SetConnectivityHandler)
	api_v1.POST("/connectivity/toggle", h.ToggleConnectivityHandler)
	api_v1.POST("/lifecycle/persist", h.PersistHandler)
	api_v1.GET("/stream", h.StreamHandler)
	commons.Logger.Info("v1 routes registered successfully")
}
