// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"time"

	"courier/models"
)

// swagger:model SendMessageRequest
type SendMessageRequest struct {
	// Text to send
	// required: true
	Text string `json:"text" example:"hello"`
}

// swagger:model InboundMessageRequest
type InboundMessageRequest struct {
	// Identifier assigned by the server
	// required: true
	RemoteID string `json:"remote_id" example:"srv_0190a1b2"`
	// required: true
	Text string `json:"text" example:"hi there"`
	// Server time of the message, defaults to now
	ServerTimestamp *time.Time `json:"server_timestamp" example:"2024-05-01T10:00:00Z"`
}

// swagger:model MessageResponse
type MessageResponse struct {
	Message models.Message `json:"message"`
}

// swagger:model MessageListResponse
type MessageListResponse struct {
	Messages []models.Message `json:"messages"`
	Total    int              `json:"total" example:"3"`
}

// swagger:model RetryResponse
type RetryResponse struct {
	// Text to place back in the composer
	Text string `json:"text" example:"hello"`
}

// swagger:model InboundMessageResponse
type InboundMessageResponse struct {
	Message models.Message `json:"message"`
	// False when the remote id was already recorded
	Created bool `json:"created"`
}

// swagger:model ConnectivityRequest
type ConnectivityRequest struct {
	// required: true
	Offline *bool `json:"offline" example:"true"`
}

// swagger:model ConnectivityResponse
type ConnectivityResponse struct {
	Offline bool `json:"offline" example:"false"`
}

// swagger:model GenericResponse
type GenericResponse struct {
	// Message indicating the result of the operation
	Message string `json:"message"`
}

// StreamEvent is pushed over the websocket stream.
type StreamEvent struct {
	Type     string           `json:"type"`
	Messages []models.Message `json:"messages"`
}
