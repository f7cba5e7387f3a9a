// SPDX-License-Identifier: GPL-3.0-only

package transport

import (
	"context"
	"errors"
	"fmt"

	"courier/models"
)

// Transport delivers one payload and blocks until the remote side settles it.
// Implementations must return either an Ack or a non-nil error, never both.
type Transport interface {
	Send(ctx context.Context, payload models.OutboundPayload) (models.Ack, error)
}

type ErrorKind string

const (
	KindOffline     ErrorKind = "OFFLINE"
	KindServerError ErrorKind = "SERVER_ERROR"
	KindTimeout     ErrorKind = "TIMEOUT"
	// KindInterrupted marks sends that were still pending when the process stopped.
	KindInterrupted ErrorKind = "INTERRUPTED"
)

// Diagnostic is the human readable reason shown next to a failed message.
func (k ErrorKind) Diagnostic() string {
	switch k {
	case KindOffline:
		return "not delivered: you are offline"
	case KindServerError:
		return "not delivered: server error"
	case KindTimeout:
		return "not delivered: no response from server"
	case KindInterrupted:
		return "not delivered: sending was interrupted"
	default:
		return "not delivered"
	}
}

type DeliveryError struct {
	Kind ErrorKind
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("delivery failed: %s", e.Kind)
	}
	return fmt.Sprintf("delivery failed: %s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func Fail(kind ErrorKind, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, Err: err}
}

// KindOf classifies any error returned by a transport. Errors that carry no
// kind are server errors; expired contexts are timeouts.
func KindOf(err error) ErrorKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindServerError
}
