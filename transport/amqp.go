// SPDX-License-Identifier: GPL-3.0-only

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"courier/commons"
	"courier/models"
	"courier/rabbitmq"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	errReplyChannelClosed = errors.New("reply channel closed")
	errDuplicateInFlight  = errors.New("delivery key already in flight")
	errEmptyRemoteID      = errors.New("reply carried no remote id")
)

type AMQPConfig struct {
	Exchange   string
	RoutingKey string
	// Timeout bounds how long a Send waits for its reply.
	Timeout time.Duration
}

// AMQP publishes payloads to an exchange and waits for the remote endpoint to
// answer on a private reply queue. Replies are matched to senders by
// correlation id, which is the delivery key.
type AMQP struct {
	ch         rabbitmq.Channel
	sw         *Switch
	cfg        AMQPConfig
	replyQueue string
	tag        string

	mu      sync.Mutex
	waiters map[string]chan models.AckReply
	closed  bool
	done    chan struct{}
}

func NewAMQP(ch rabbitmq.Channel, sw *Switch, cfg AMQPConfig) (*AMQP, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("reply queue declare: %w", err)
	}
	tag := "courier-replies-" + uuid.NewString()
	replies, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("reply consume: %w", err)
	}

	t := &AMQP{
		ch:         ch,
		sw:         sw,
		cfg:        cfg,
		replyQueue: q.Name,
		tag:        tag,
		waiters:    make(map[string]chan models.AckReply),
		done:       make(chan struct{}),
	}
	go t.dispatchReplies(replies)

	commons.Logger.Infof("AMQP transport ready (exchange=%s, key=%s, reply_queue=%s)", cfg.Exchange, cfg.RoutingKey, q.Name)
	return t, nil
}

func (t *AMQP) Send(ctx context.Context, payload models.OutboundPayload) (models.Ack, error) {
	if t.sw.Offline() {
		return models.Ack{}, Fail(KindOffline, nil)
	}

	wait, err := t.register(payload.DeliveryKey)
	if err != nil {
		return models.Ack{}, Fail(KindServerError, err)
	}
	defer t.unregister(payload.DeliveryKey)

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	msg := amqp.Publishing{
		CorrelationId: payload.DeliveryKey,
		MessageId:     payload.DeliveryKey,
		ReplyTo:       t.replyQueue,
		Timestamp:     payload.SentAt,
		DeliveryMode:  amqp.Persistent,
	}
	if err := rabbitmq.PublishJSON(ctx, t.ch, t.cfg.Exchange, t.cfg.RoutingKey, msg, payload); err != nil {
		return models.Ack{}, Fail(KindServerError, err)
	}

	select {
	case reply, ok := <-wait:
		if !ok {
			return models.Ack{}, Fail(KindServerError, errReplyChannelClosed)
		}
		if reply.Error != "" {
			return models.Ack{}, Fail(KindServerError, errors.New(reply.Error))
		}
		if reply.RemoteID == "" {
			return models.Ack{}, Fail(KindServerError, errEmptyRemoteID)
		}
		return models.Ack{RemoteID: reply.RemoteID, ServerTimestamp: reply.ServerTimestamp}, nil
	case <-ctx.Done():
		return models.Ack{}, Fail(KindTimeout, ctx.Err())
	}
}

// Close cancels the reply consumer and fails every waiting Send. The channel
// belongs to the caller and stays open.
func (t *AMQP) Close() error {
	err := t.ch.Cancel(t.tag, false)
	if err != nil {
		return fmt.Errorf("cancel reply consumer: %w", err)
	}
	<-t.done
	return nil
}

func (t *AMQP) register(key string) (chan models.AckReply, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errReplyChannelClosed
	}
	if _, exists := t.waiters[key]; exists {
		return nil, errDuplicateInFlight
	}
	wait := make(chan models.AckReply, 1)
	t.waiters[key] = wait
	return wait, nil
}

func (t *AMQP) unregister(key string) {
	t.mu.Lock()
	delete(t.waiters, key)
	t.mu.Unlock()
}

func (t *AMQP) dispatchReplies(replies <-chan amqp.Delivery) {
	defer close(t.done)
	for d := range replies {
		var reply models.AckReply
		if err := json.Unmarshal(d.Body, &reply); err != nil {
			commons.Logger.Warnf("Dropping malformed reply %s: %v", d.CorrelationId, err)
			continue
		}
		key := d.CorrelationId
		if key == "" {
			key = reply.DeliveryKey
		}

		t.mu.Lock()
		wait, ok := t.waiters[key]
		if ok {
			delete(t.waiters, key)
		}
		t.mu.Unlock()

		if !ok {
			commons.Logger.Debugf("Dropping reply for unknown delivery key %s", key)
			continue
		}
		wait <- reply
	}

	t.mu.Lock()
	t.closed = true
	for key, wait := range t.waiters {
		close(wait)
		delete(t.waiters, key)
	}
	t.mu.Unlock()
	commons.Logger.Info("AMQP reply consumer stopped")
}
