// SPDX-License-Identifier: GPL-3.0-only

package engine

import (
	"context"
	"sync"

	"courier/commons"
	"courier/db"
	"courier/metrics"
	"courier/models"
)

// persister writes the log to a slot in the background. Change signals are
// coalesced: any number of triggers while a write is running leads to at
// most one more write, and that write takes a fresh snapshot.
type persister struct {
	slot     db.Slot
	snapshot func() []models.Message
	metrics  *metrics.Delivery

	// saveMu serializes writes. The snapshot is taken under it so an older
	// snapshot can never land after a newer one.
	saveMu sync.Mutex

	signal    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newPersister(slot db.Slot, snapshot func() []models.Message, m *metrics.Delivery) *persister {
	return &persister{
		slot:     slot,
		snapshot: snapshot,
		metrics:  m,
		signal:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *persister) trigger() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		case <-p.signal:
			_ = p.save(context.Background())
		}
	}
}

func (p *persister) save(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	if err := db.SaveMessages(ctx, p.slot, p.snapshot()); err != nil {
		commons.Logger.Errorf("PERSISTENCE_WRITE_FAILURE: %v", err)
		p.metrics.PersistFailed()
		return err
	}
	return nil
}

// close stops the background loop and writes one last snapshot.
func (p *persister) close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
		err = p.save(ctx)
	})
	return err
}
