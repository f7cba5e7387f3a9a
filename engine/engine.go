// SPDX-License-Identifier: GPL-3.0-only

// Package engine runs the optimistic send lifecycle: a message is shown as
// pending right away, handed to the transport, and later resolved in place to
// sent or failed by its delivery key.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"courier/commons"
	"courier/db"
	"courier/metrics"
	"courier/models"
	"courier/store"
	"courier/transport"

	"github.com/benbjohnson/clock"
)

var (
	ErrEmptyText       = errors.New("message text is empty")
	ErrMissingRemoteID = errors.New("remote id is required")
	ErrNotFound        = errors.New("message not found")
	ErrNotRetryable    = errors.New("only failed messages can be retried")
)

const DefaultSendTimeout = 10 * time.Second

type Config struct {
	Transport transport.Transport
	Slot      db.Slot

	// Optional collaborators; zero values get defaults.
	Store       *store.Store
	IDs         commons.IDGenerator
	Clock       clock.Clock
	Metrics     *metrics.Delivery
	SendTimeout time.Duration
}

type Engine struct {
	store       *store.Store
	transport   transport.Transport
	ids         commons.IDGenerator
	clock       clock.Clock
	metrics     *metrics.Delivery
	sendTimeout time.Duration

	persister   *persister
	broadcaster *broadcaster
	inflight    sync.WaitGroup
	closeOnce   sync.Once
	closeErr    error
}

// New loads the persisted log from cfg.Slot and starts the background
// persister. A missing or unreadable log starts the engine empty.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Transport == nil {
		return nil, errors.New("engine: transport is required")
	}
	if cfg.Slot == nil {
		return nil, errors.New("engine: persistence slot is required")
	}
	if cfg.Store == nil {
		cfg.Store = store.New()
	}
	if cfg.IDs == nil {
		cfg.IDs = commons.UUIDGenerator{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	e := &Engine{
		store:       cfg.Store,
		transport:   cfg.Transport,
		ids:         cfg.IDs,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		sendTimeout: cfg.SendTimeout,
		broadcaster: newBroadcaster(),
	}
	e.persister = newPersister(cfg.Slot, e.store.Snapshot, cfg.Metrics)

	interrupted := e.restore(ctx, cfg.Slot)

	e.store.SetChangeHook(e.changed)
	go e.persister.run()
	if interrupted > 0 {
		e.persister.trigger()
	}
	return e, nil
}

// restore loads the saved log into the store and returns how many pending
// records it had to fail.
func (e *Engine) restore(ctx context.Context, slot db.Slot) int {
	msgs, err := db.LoadMessages(ctx, slot)
	switch {
	case errors.Is(err, db.ErrMalformedData):
		commons.Logger.Warnf("Discarding persisted messages, starting empty: %v", err)
		return 0
	case err != nil:
		commons.Logger.Errorf("Failed to read persisted messages, starting empty: %v", err)
		return 0
	}

	interrupted := 0
	diag := transport.KindInterrupted.Diagnostic()
	for i := range msgs {
		if msgs[i].Status != models.Pending {
			continue
		}
		msgs[i].Status = models.Failed
		msgs[i].FailureKind = string(transport.KindInterrupted)
		msgs[i].Diagnostic = diag
		msgs[i].Text = msgs[i].ComposerText() + models.DecorationFor(diag)
		interrupted++
	}

	if err := e.store.Restore(msgs); err != nil {
		commons.Logger.Warnf("Discarding persisted messages, starting empty: %v", err)
		return 0
	}
	commons.Logger.Infof("Restored %d messages (%d interrupted sends marked failed)", len(msgs), interrupted)
	return interrupted
}

// Initiate appends a pending message and starts delivering it. The returned
// record is already visible in Messages when Initiate returns.
func (e *Engine) Initiate(ctx context.Context, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyText
	}

	now := e.clock.Now().UTC()
	m := models.NewOutgoingMessage(
		e.ids.NewID(commons.ScopeMessage),
		e.ids.NewID(commons.ScopeDelivery),
		text,
		now,
	)
	if err := e.store.Append(m); err != nil {
		return models.Message{}, fmt.Errorf("append %s: %w", m.LocalID, err)
	}
	e.metrics.Initiated()
	commons.Logger.Debugf("Initiated %s (delivery key %s)", m.LocalID, m.DeliveryKey)

	e.inflight.Add(1)
	go e.deliver(ctx, models.NewOutboundPayload(m, now), now)
	return m, nil
}

func (e *Engine) deliver(parent context.Context, payload models.OutboundPayload, started time.Time) {
	defer e.inflight.Done()

	// The send outlives the request that started it but is always bounded.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), e.sendTimeout)
	defer cancel()

	ack, err := e.transport.Send(ctx, payload)
	took := e.clock.Since(started)
	if err == nil && ack.RemoteID == "" {
		err = transport.Fail(transport.KindServerError, errors.New("acknowledgement without remote id"))
	}
	if err != nil {
		kind := transport.KindOf(err)
		commons.Logger.Warnf("Delivery %s failed: %v", payload.DeliveryKey, err)
		if e.OnFail(payload.DeliveryKey, kind) {
			e.metrics.Resolved(models.Failed, string(kind), took)
		}
		return
	}
	if e.OnAck(payload.DeliveryKey, ack.RemoteID, ack.ServerTimestamp) {
		e.metrics.Resolved(models.Sent, "", took)
		return
	}
	// The ack was rejected while the record is still pending, e.g. its remote
	// id is already taken by another record. The send must still settle.
	if e.OnFail(payload.DeliveryKey, transport.KindServerError) {
		commons.Logger.Warnf("Delivery %s acknowledged with unusable remote id %q", payload.DeliveryKey, ack.RemoteID)
		e.metrics.Resolved(models.Failed, string(transport.KindServerError), took)
	}
}

// OnAck resolves the pending message with deliveryKey as sent. It reports
// false, and changes nothing, when no such pending message exists.
func (e *Engine) OnAck(deliveryKey, remoteID string, serverTimestamp time.Time) bool {
	confirmed := serverTimestamp.UTC()
	ok := e.store.UpdateByKey(deliveryKey, models.Pending, func(m *models.Message) {
		m.Status = models.Sent
		m.RemoteID = remoteID
		m.ConfirmedAt = &confirmed
	})
	if !ok {
		commons.Logger.Debugf("Ignoring ack for %s: no pending message", deliveryKey)
		return false
	}
	commons.Logger.Infof("Delivered %s as %s", deliveryKey, remoteID)
	return true
}

// OnFail resolves the pending message with deliveryKey as failed and
// decorates its display text. The original text stays available for retry.
func (e *Engine) OnFail(deliveryKey string, kind transport.ErrorKind) bool {
	diag := kind.Diagnostic()
	ok := e.store.UpdateByKey(deliveryKey, models.Pending, func(m *models.Message) {
		m.Status = models.Failed
		m.FailureKind = string(kind)
		m.Diagnostic = diag
		m.Text = m.ComposerText() + models.DecorationFor(diag)
	})
	if !ok {
		commons.Logger.Debugf("Ignoring failure for %s: no pending message", deliveryKey)
		return false
	}
	return true
}

// Retry returns the text to put back in the composer for a failed message.
// The failed message itself is left untouched.
func (e *Engine) Retry(localID string) (string, error) {
	m, ok := e.store.Get(localID)
	if !ok {
		return "", ErrNotFound
	}
	if m.Status != models.Failed {
		return "", ErrNotRetryable
	}
	return m.ComposerText(), nil
}

// Resubmit sends the original text of a failed message again as a new message.
func (e *Engine) Resubmit(ctx context.Context, localID string) (models.Message, error) {
	text, err := e.Retry(localID)
	if err != nil {
		return models.Message{}, err
	}
	return e.Initiate(ctx, text)
}

// Receive records a message from the remote party. A remote id that is
// already in the log is not added twice; created reports whether it was new.
// A zero serverTimestamp means the engine clock's current time.
func (e *Engine) Receive(remoteID, text string, serverTimestamp time.Time) (msg models.Message, created bool, err error) {
	if remoteID == "" {
		return models.Message{}, false, ErrMissingRemoteID
	}
	if strings.TrimSpace(text) == "" {
		return models.Message{}, false, ErrEmptyText
	}

	now := e.clock.Now().UTC()
	confirmed := now
	if !serverTimestamp.IsZero() {
		confirmed = serverTimestamp.UTC()
	}
	m := models.Message{
		LocalID:      e.ids.NewID(commons.ScopeMessage),
		RemoteID:     remoteID,
		Text:         text,
		OriginalText: text,
		Sender:       models.RemoteParty,
		Status:       models.Sent,
		CreatedAt:    now,
		ConfirmedAt:  &confirmed,
	}
	if err := e.store.Append(m); err != nil {
		if errors.Is(err, store.ErrDuplicateRemoteID) {
			existing, _ := e.store.FindByRemoteID(remoteID)
			return existing, false, nil
		}
		return models.Message{}, false, fmt.Errorf("append %s: %w", m.LocalID, err)
	}
	return m, true, nil
}

// Messages returns the log in display order.
func (e *Engine) Messages() []models.Message {
	return e.store.Snapshot()
}

func (e *Engine) Get(localID string) (models.Message, bool) {
	return e.store.Get(localID)
}

// CountByStatus reports how many messages are in each status.
func (e *Engine) CountByStatus() map[models.Status]int {
	return e.store.CountByStatus()
}

// Persist writes the current log synchronously. Lifecycle hooks call it.
func (e *Engine) Persist(ctx context.Context) error {
	return e.persister.save(ctx)
}

// Subscribe returns a channel that receives a signal after log changes.
// Bursts of changes may be delivered as one signal.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	return e.broadcaster.subscribe()
}

// Wait blocks until every initiated send has resolved.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Close waits for in-flight sends, stops the persister and writes a final snapshot.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.Wait()
		e.closeErr = e.persister.close(ctx)
		e.broadcaster.close()
	})
	return e.closeErr
}

func (e *Engine) changed() {
	e.persister.trigger()
	e.broadcaster.notify()
}
