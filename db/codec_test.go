// SPDX-License-Identifier: GPL-3.0-only

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"courier/models"
)

func sampleLog() []models.Message {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	confirmed := created.Add(2 * time.Second)

	sent := models.NewOutgoingMessage("msg_1", "dlv_1", "hello", created)
	sent.Status = models.Sent
	sent.RemoteID = "srv_1"
	sent.ConfirmedAt = &confirmed

	failed := models.NewOutgoingMessage("msg_2", "dlv_2", "hi", created.Add(time.Second))
	failed.Status = models.Failed
	failed.Diagnostic = "not delivered: you are offline"
	failed.FailureKind = "OFFLINE"
	failed.Text = "hi" + models.DecorationFor(failed.Diagnostic)

	inbound := models.Message{
		LocalID:     "msg_3",
		RemoteID:    "srv_9",
		Text:        "hey there",
		Sender:      models.RemoteParty,
		Status:      models.Sent,
		CreatedAt:   created,
		ConfirmedAt: &created,
	}
	return []models.Message{sent, failed, inbound}
}

func TestSaveThenLoadIsObservablyEqual(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot(nil)
	original := sampleLog()

	if err := SaveMessages(ctx, slot, original); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	loaded, err := LoadMessages(ctx, slot)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(loaded) != len(original) {
		t.Fatalf("Expected %d records, got %d", len(original), len(loaded))
	}

	byID := make(map[string]models.Message)
	for _, m := range loaded {
		byID[m.LocalID] = m
	}
	for _, want := range original {
		got, ok := byID[want.LocalID]
		if !ok {
			t.Errorf("Expected %s after reload", want.LocalID)
			continue
		}
		if got.Text != want.Text || got.OriginalText != want.OriginalText || got.Status != want.Status || got.Sender != want.Sender {
			t.Errorf("Expected %+v, got %+v", want, got)
		}
		if !got.DisplayTime().Equal(want.DisplayTime()) {
			t.Errorf("Expected display time %v for %s, got %v", want.DisplayTime(), want.LocalID, got.DisplayTime())
		}
	}
}

func TestLoadMissingSlotIsEmpty(t *testing.T) {
	msgs, err := LoadMessages(context.Background(), NewMemorySlot(nil))
	if err != nil {
		t.Fatalf("Expected no error for a missing value, got %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("Expected empty, non-nil log, got %v", msgs)
	}
}

func TestDecodeRejectsMalformedData(t *testing.T) {
	cases := map[string]string{
		"garbage":          `{{{`,
		"object":           `{"local_id":"msg_1"}`,
		"null":             `null`,
		"empty":            ``,
		"bad status":       `[{"local_id":"msg_1","delivery_key":"dlv_1","status":"QUEUED","sender":"LOCAL_USER"}]`,
		"bad sender":       `[{"local_id":"msg_1","delivery_key":"dlv_1","status":"SENT","sender":"bot"}]`,
		"missing local id": `[{"delivery_key":"dlv_1","status":"SENT","sender":"LOCAL_USER"}]`,
		"missing key":      `[{"local_id":"msg_1","status":"SENT","sender":"LOCAL_USER"}]`,
		"duplicate":        `[{"local_id":"m","delivery_key":"a","status":"SENT","sender":"LOCAL_USER"},{"local_id":"m","delivery_key":"b","status":"SENT","sender":"LOCAL_USER"}]`,
		"wrong field type": `[{"local_id":42}]`,
	}
	for name, raw := range cases {
		if _, err := DecodeMessages([]byte(raw)); !errors.Is(err, ErrMalformedData) {
			t.Errorf("%s: expected ErrMalformedData, got %v", name, err)
		}
	}
}

func TestEncodeEmptyLogIsArray(t *testing.T) {
	data, err := EncodeMessages(nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Expected [], got %s", data)
	}
}

type brokenSlot struct{}

func (brokenSlot) Load(context.Context) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenSlot) Save(context.Context, []byte) error  { return errors.New("disk gone") }

func TestSlotErrorsAreWrapped(t *testing.T) {
	if _, err := LoadMessages(context.Background(), brokenSlot{}); err == nil || errors.Is(err, ErrMalformedData) {
		t.Errorf("Expected a load error distinct from malformed data, got %v", err)
	}
	if err := SaveMessages(context.Background(), brokenSlot{}, sampleLog()); err == nil {
		t.Error("Expected save error")
	}
}
