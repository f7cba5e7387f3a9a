// SPDX-License-Identifier: GPL-3.0-only

package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOutboundPayloadCarriesNoLocalID(t *testing.T) {
	m := NewOutgoingMessage("msg_1", "dlv_1", "Hello, World!", time.Now())
	m.Text = "Hello, World! (decorated)"

	payload := NewOutboundPayload(m, time.Now())

	jsonData, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to serialize OutboundPayload: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(jsonData, &jsonMap); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	requiredFields := []string{"delivery_key", "text", "sent_at"}
	for _, field := range requiredFields {
		if _, exists := jsonMap[field]; !exists {
			t.Errorf("Required field %s missing from JSON", field)
		}
	}
	if _, exists := jsonMap["local_id"]; exists {
		t.Error("Expected local_id to stay out of the transport payload")
	}
	if jsonMap["text"] != "Hello, World!" {
		t.Errorf("Expected undecorated text, got %v", jsonMap["text"])
	}
	if jsonMap["delivery_key"] != "dlv_1" {
		t.Errorf("Expected delivery_key dlv_1, got %v", jsonMap["delivery_key"])
	}
}
