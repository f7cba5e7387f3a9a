// SPDX-License-Identifier: GPL-3.0-only

package models

import "time"

// OutboundPayload is what the transport sees of a message. LocalID never
// leaves the client.
type OutboundPayload struct {
	DeliveryKey string    `json:"delivery_key"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
}

// NewOutboundPayload creates the payload for one send attempt of m.
func NewOutboundPayload(m Message, now time.Time) OutboundPayload {
	return OutboundPayload{
		DeliveryKey: m.DeliveryKey,
		Text:        m.OriginalText,
		SentAt:      now,
	}
}

// Ack is a successful transport result.
type Ack struct {
	RemoteID        string    `json:"remote_id"`
	ServerTimestamp time.Time `json:"server_timestamp"`
}

// AckReply is the body a remote endpoint publishes back on the reply queue.
// Error is set instead of RemoteID when the endpoint rejected the message.
type AckReply struct {
	DeliveryKey     string    `json:"delivery_key"`
	RemoteID        string    `json:"remote_id,omitempty"`
	ServerTimestamp time.Time `json:"server_timestamp"`
	Error           string    `json:"error,omitempty"`
}
