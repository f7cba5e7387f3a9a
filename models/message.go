// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"strings"
	"time"
)

type Status string
type Sender string

const (
	Pending Status = "PENDING"
	Sent    Status = "SENT"
	Failed  Status = "FAILED"
)

const (
	LocalUser   Sender = "LOCAL_USER"
	RemoteParty Sender = "REMOTE_PARTY"
)

func (s Status) Valid() bool {
	switch s {
	case Pending, Sent, Failed:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == Sent || s == Failed
}

func (s Sender) Valid() bool {
	return s == LocalUser || s == RemoteParty
}

// Message is one entry of the conversation log. LocalID is the record's
// identity; DeliveryKey only correlates a transport result back to it.
type Message struct {
	// LocalID is assigned at creation and never reused
	LocalID string `json:"local_id"`
	// DeliveryKey is generated once per send attempt and handed to the transport
	DeliveryKey string `json:"delivery_key"`
	// RemoteID is set by the transport on acknowledgement
	RemoteID string `json:"remote_id,omitempty"`
	// Text is the display text, decorated with a diagnostic when failed
	Text string `json:"text"`
	// OriginalText is the undecorated content used to refill the composer
	OriginalText string `json:"original_text"`
	Diagnostic   string `json:"diagnostic,omitempty"`
	FailureKind  string `json:"failure_kind,omitempty"`
	Sender       Sender `json:"sender"`
	Status       Status `json:"status"`
	// CreatedAt is local clock time of creation
	CreatedAt time.Time `json:"created_at"`
	// ConfirmedAt is the server time reported with the acknowledgement
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// NewOutgoingMessage builds a pending record authored by the local user.
func NewOutgoingMessage(localID, deliveryKey, text string, now time.Time) Message {
	return Message{
		LocalID:      localID,
		DeliveryKey:  deliveryKey,
		Text:         text,
		OriginalText: text,
		Sender:       LocalUser,
		Status:       Pending,
		CreatedAt:    now,
	}
}

// DisplayTime is server time once a message is confirmed and local time before.
func (m Message) DisplayTime() time.Time {
	if m.Status == Sent && m.ConfirmedAt != nil && !m.ConfirmedAt.IsZero() {
		return *m.ConfirmedAt
	}
	return m.CreatedAt
}

// ComposerText is the text a retry puts back into the composer.
func (m Message) ComposerText() string {
	if m.OriginalText != "" {
		return m.OriginalText
	}
	// Records written before OriginalText existed.
	if m.Diagnostic != "" {
		return strings.TrimSuffix(m.Text, DecorationFor(m.Diagnostic))
	}
	return m.Text
}

// DecorationFor renders the suffix appended to the display text of a failed message.
func DecorationFor(diagnostic string) string {
	return " (" + diagnostic + ")"
}

// Before orders messages for display: display time, then creation time, then LocalID.
func Before(a, b Message) bool {
	at, bt := a.DisplayTime(), b.DisplayTime()
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.LocalID < b.LocalID
}
