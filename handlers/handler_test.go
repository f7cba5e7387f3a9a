// SPDX-License-Identifier: GPL-3.0-only

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"courier/commons"
	"courier/db"
	"courier/engine"
	"courier/handlers"
	"courier/models"
	"courier/routes"
	"courier/transport"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T) (*echo.Echo, *engine.Engine, *transport.Switch) {
	t.Helper()
	sw := transport.NewSwitch(false)
	sim := transport.NewSimulated(sw, transport.SimulatedConfig{})
	eng, err := engine.New(context.Background(), engine.Config{
		Transport: sim,
		Slot:      db.NewMemorySlot(nil),
		IDs:       &commons.SequenceGenerator{},
	})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close(context.Background()) })

	e := echo.New()
	routes.RegisterRoutes(e, handlers.New(eng, sw))
	return e, eng, sw
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSendMessageHandler(t *testing.T) {
	e, eng, _ := newTestServer(t)

	rec := do(e, http.MethodPost, "/v1/messages", `{"text":"hello"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp handlers.MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Message.Status != models.Pending || resp.Message.Text != "hello" {
		t.Errorf("Expected pending hello, got %s %q", resp.Message.Status, resp.Message.Text)
	}

	eng.Wait()
	got, _ := eng.Get(resp.Message.LocalID)
	if got.Status != models.Sent {
		t.Errorf("Expected SENT after delivery, got %s", got.Status)
	}
}

func TestSendMessageHandlerRejectsBadInput(t *testing.T) {
	e, _, _ := newTestServer(t)

	cases := map[string]string{
		"empty text": `{"text":"  "}`,
		"malformed":  `{"text":`,
		"missing":    `{}`,
	}
	for name, body := range cases {
		if rec := do(e, http.MethodPost, "/v1/messages", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

func TestGetMessagesHandler(t *testing.T) {
	e, eng, _ := newTestServer(t)
	do(e, http.MethodPost, "/v1/messages", `{"text":"one"}`)
	do(e, http.MethodPost, "/v1/messages", `{"text":"two"}`)
	eng.Wait()

	rec := do(e, http.MethodGet, "/v1/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp handlers.MessageListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", resp.Total)
	}
}

func TestRetryAndResubmitHandlers(t *testing.T) {
	e, eng, sw := newTestServer(t)

	sw.SetOffline(true)
	var sent handlers.MessageResponse
	rec := do(e, http.MethodPost, "/v1/messages", `{"text":"hi"}`)
	_ = json.Unmarshal(rec.Body.Bytes(), &sent)
	eng.Wait()
	sw.SetOffline(false)

	rec = do(e, http.MethodPost, "/v1/messages/"+sent.Message.LocalID+"/retry", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var retry handlers.RetryResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &retry)
	if retry.Text != "hi" {
		t.Errorf("Expected composer text hi, got %q", retry.Text)
	}

	rec = do(e, http.MethodPost, "/v1/messages/"+sent.Message.LocalID+"/resubmit", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	var resubmitted handlers.MessageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resubmitted)
	eng.Wait()

	got, _ := eng.Get(resubmitted.Message.LocalID)
	if got.Status != models.Sent || got.Text != "hi" {
		t.Errorf("Expected resubmitted SENT hi, got %s %q", got.Status, got.Text)
	}

	if rec := do(e, http.MethodPost, "/v1/messages/msg_404/retry", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/messages/"+resubmitted.Message.LocalID+"/retry", ""); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for a sent message, got %d", rec.Code)
	}
}

func TestReceiveMessageHandler(t *testing.T) {
	e, _, _ := newTestServer(t)
	body := `{"remote_id":"srv_in","text":"hey","server_timestamp":"2024-05-01T10:00:00Z"}`

	rec := do(e, http.MethodPost, "/v1/messages/inbound", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp handlers.InboundMessageResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message.Sender != models.RemoteParty {
		t.Errorf("Expected REMOTE_PARTY, got %s", resp.Message.Sender)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if resp.Message.ConfirmedAt == nil || !resp.Message.ConfirmedAt.Equal(want) {
		t.Errorf("Expected confirmed at %s, got %v", want, resp.Message.ConfirmedAt)
	}

	if rec := do(e, http.MethodPost, "/v1/messages/inbound", body); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for a repeated remote id, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/messages/inbound", `{"text":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without remote_id, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/v1/messages/inbound", `{"remote_id":"srv_untimed","text":"no time"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 without server_timestamp, got %d", rec.Code)
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Message.ConfirmedAt == nil || resp.Message.ConfirmedAt.IsZero() {
		t.Errorf("Expected a confirmation time from the engine clock, got %v", resp.Message.ConfirmedAt)
	}
}

func TestConnectivityHandlers(t *testing.T) {
	e, _, sw := newTestServer(t)

	rec := do(e, http.MethodPut, "/v1/connectivity", `{"offline":true}`)
	if rec.Code != http.StatusOK || !sw.Offline() {
		t.Fatalf("Expected switch engaged, got %d offline=%v", rec.Code, sw.Offline())
	}

	rec = do(e, http.MethodPost, "/v1/connectivity/toggle", "")
	var resp handlers.ConnectivityResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Offline || sw.Offline() {
		t.Error("Expected toggle to bring the switch back online")
	}

	rec = do(e, http.MethodGet, "/v1/connectivity", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || resp.Offline {
		t.Errorf("Expected online state, got %d offline=%v", rec.Code, resp.Offline)
	}

	if rec := do(e, http.MethodPut, "/v1/connectivity", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without offline field, got %d", rec.Code)
	}
}

func TestPersistHandler(t *testing.T) {
	e, _, _ := newTestServer(t)

	if rec := do(e, http.MethodPost, "/v1/lifecycle/persist", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestStreamHandlerPushesSnapshots(t *testing.T) {
	e, eng, _ := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial stream: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev handlers.StreamEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("Failed to read initial snapshot: %v", err)
	}
	if ev.Type != "snapshot" || len(ev.Messages) != 0 {
		t.Errorf("Expected empty snapshot, got %s with %d messages", ev.Type, len(ev.Messages))
	}

	if _, err := eng.Initiate(context.Background(), "streamed"); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	eng.Wait()

	// Updates are coalesced; read until the sent state shows up.
	for {
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("Failed to read update: %v", err)
		}
		if ev.Type == "update" && len(ev.Messages) == 1 && ev.Messages[0].Status == models.Sent {
			break
		}
	}
}
