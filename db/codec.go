// SPDX-License-Identifier: GPL-3.0-only

package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"courier/models"
)

// ErrMalformedData reports a persisted value that cannot be trusted; callers
// discard it and start with an empty log.
var ErrMalformedData = errors.New("malformed persisted data")

func EncodeMessages(msgs []models.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	return json.Marshal(msgs)
}

func DecodeMessages(data []byte) ([]models.Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: not a JSON array", ErrMalformedData)
	}

	var msgs []models.Message
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	seen := make(map[string]bool, len(msgs))
	for i, m := range msgs {
		switch {
		case m.LocalID == "":
			return nil, fmt.Errorf("%w: record %d has no local_id", ErrMalformedData, i)
		case seen[m.LocalID]:
			return nil, fmt.Errorf("%w: duplicate local_id %s", ErrMalformedData, m.LocalID)
		case !m.Status.Valid():
			return nil, fmt.Errorf("%w: record %s has status %q", ErrMalformedData, m.LocalID, m.Status)
		case !m.Sender.Valid():
			return nil, fmt.Errorf("%w: record %s has sender %q", ErrMalformedData, m.LocalID, m.Sender)
		case m.Sender == models.LocalUser && m.DeliveryKey == "":
			return nil, fmt.Errorf("%w: record %s has no delivery_key", ErrMalformedData, m.LocalID)
		}
		seen[m.LocalID] = true
	}
	return msgs, nil
}

// LoadMessages reads and decodes the log from slot. A missing value is an
// empty log.
func LoadMessages(ctx context.Context, slot Slot) ([]models.Message, error) {
	data, err := slot.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if data == nil {
		return []models.Message{}, nil
	}
	return DecodeMessages(data)
}

func SaveMessages(ctx context.Context, slot Slot, msgs []models.Message) error {
	data, err := EncodeMessages(msgs)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := slot.Save(ctx, data); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}
