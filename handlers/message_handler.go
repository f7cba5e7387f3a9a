// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SendMessageHandler godoc
// @Summary      Send a message
// @Description  Records the message as pending and starts delivery. The returned record resolves to SENT or FAILED later.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        sendMessageRequest  body  SendMessageRequest  true  "Send message request payload"
// @Success      202 {object} MessageResponse "Message accepted and pending"
// @Failure      400 {object} echo.HTTPError  "Bad request, missing or empty text"
// @Failure      500 {object} echo.HTTPError  "Internal server error"
// @Router       /v1/messages [post]
func (h *Handler) SendMessageHandler(c echo.Context) error {
	logger := c.Logger()

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid send message request payload:", err)
		return errInvalidPayload
	}

	msg, err := h.engine.Initiate(c.Request().Context(), req.Text)
	if err != nil {
		return engineError(c, err)
	}

	return c.JSON(http.StatusAccepted, MessageResponse{Message: msg})
}

// GetMessagesHandler godoc
// @Summary      List messages
// @Description  Returns the whole conversation log in display order.
// @Tags         messages
// @Produce      json
// @Success      200 {object} MessageListResponse "Message log"
// @Router       /v1/messages [get]
func (h *Handler) GetMessagesHandler(c echo.Context) error {
	msgs := h.engine.Messages()
	return c.JSON(http.StatusOK, MessageListResponse{Messages: msgs, Total: len(msgs)})
}

// RetryMessageHandler godoc
// @Summary      Retry a failed message
// @Description  Returns the original text of a failed message so it can be placed back in the composer.
// @Tags         messages
// @Produce      json
// @Param        local_id  path  string  true  "Local message id"
// @Success      200 {object} RetryResponse  "Composer text"
// @Failure      404 {object} echo.HTTPError "Message not found"
// @Failure      409 {object} echo.HTTPError "Message is not failed"
// @Router       /v1/messages/{local_id}/retry [post]
func (h *Handler) RetryMessageHandler(c echo.Context) error {
	text, err := h.engine.Retry(c.Param("local_id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, RetryResponse{Text: text})
}

// ResubmitMessageHandler godoc
// @Summary      Resend a failed message
// @Description  Sends the original text of a failed message again as a new message.
// @Tags         messages
// @Produce      json
// @Param        local_id  path  string  true  "Local message id"
// @Success      202 {object} MessageResponse "New pending message"
// @Failure      404 {object} echo.HTTPError  "Message not found"
// @Failure      409 {object} echo.HTTPError  "Message is not failed"
// @Router       /v1/messages/{local_id}/resubmit [post]
func (h *Handler) ResubmitMessageHandler(c echo.Context) error {
	msg, err := h.engine.Resubmit(c.Request().Context(), c.Param("local_id"))
	if err != nil {
		return engineError(c, err)
	}
	c.Logger().Infof("Resubmitted %s as %s", c.Param("local_id"), msg.LocalID)
	return c.JSON(http.StatusAccepted, MessageResponse{Message: msg})
}

// ReceiveMessageHandler godoc
// @Summary      Record an inbound message
// @Description  Adds a message from the remote party. Repeated remote ids are ignored.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        inboundMessageRequest  body  InboundMessageRequest  true  "Inbound message payload"
// @Success      201 {object} InboundMessageResponse "Message recorded"
// @Success      200 {object} InboundMessageResponse "Message already recorded"
// @Failure      400 {object} echo.HTTPError         "Bad request, missing remote_id or text"
// @Router       /v1/messages/inbound [post]
func (h *Handler) ReceiveMessageHandler(c echo.Context) error {
	var req InboundMessageRequest
	if err := c.Bind(&req); err != nil {
		c.Logger().Error("Invalid inbound message payload:", err)
		return errInvalidPayload
	}

	var at time.Time
	if req.ServerTimestamp != nil {
		at = *req.ServerTimestamp
	}

	msg, created, err := h.engine.Receive(req.RemoteID, req.Text, at)
	if err != nil {
		return engineError(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, InboundMessageResponse{Message: msg, Created: created})
}
