// SPDX-License-Identifier: GPL-3.0-only

package transport

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"courier/commons"
	"courier/models"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var errInjected = errors.New("injected server failure")

type SimulatedConfig struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64
}

// Simulated stands in for a network endpoint: it waits a random latency and
// then acknowledges or fails the payload.
type Simulated struct {
	cfg   SimulatedConfig
	sw    *Switch
	clock clock.Clock
	roll  func() float64
}

type SimulatedOption func(*Simulated)

func WithClock(c clock.Clock) SimulatedOption {
	return func(s *Simulated) { s.clock = c }
}

// WithRoll replaces the random source used for failure injection.
func WithRoll(roll func() float64) SimulatedOption {
	return func(s *Simulated) { s.roll = roll }
}

func NewSimulated(sw *Switch, cfg SimulatedConfig, opts ...SimulatedOption) *Simulated {
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	s := &Simulated{
		cfg:   cfg,
		sw:    sw,
		clock: clock.New(),
		roll:  rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) Send(ctx context.Context, payload models.OutboundPayload) (models.Ack, error) {
	offline := s.sw.Offline()
	latency := s.latency()
	commons.Logger.Debugf("Simulated send %s: latency=%s offline=%v", payload.DeliveryKey, latency, offline)

	timer := s.clock.Timer(latency)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return models.Ack{}, Fail(KindTimeout, ctx.Err())
	}

	if offline {
		return models.Ack{}, Fail(KindOffline, nil)
	}
	if s.cfg.FailureRate > 0 && s.roll() < s.cfg.FailureRate {
		return models.Ack{}, Fail(KindServerError, errInjected)
	}
	return models.Ack{
		RemoteID:        "srv_" + uuid.NewString(),
		ServerTimestamp: s.clock.Now().UTC(),
	}, nil
}

func (s *Simulated) latency() time.Duration {
	spread := s.cfg.MaxLatency - s.cfg.MinLatency
	if spread <= 0 {
		return s.cfg.MinLatency
	}
	return s.cfg.MinLatency + rand.N(spread)
}
