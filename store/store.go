// SPDX-License-Identifier: GPL-3.0-only

// Package store holds the in-memory message log. Records are addressed by
// LocalID and resolved by DeliveryKey; positions are an internal detail.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"courier/models"
)

var (
	ErrDuplicateLocalID     = errors.New("duplicate local id")
	ErrDuplicateDeliveryKey = errors.New("duplicate delivery key")
	ErrDuplicateRemoteID    = errors.New("duplicate remote id")
	ErrMissingIdentity      = errors.New("message has no local id")
)

// Store is an ordered collection of messages. All mutation goes through
// Append, UpdateByKey and Restore.
type Store struct {
	mu         sync.RWMutex
	records    []models.Message
	byLocalID  map[string]int
	byDelivery map[string]int
	byRemoteID map[string]int
	onChange   func()
}

type Option func(*Store)

// WithChangeHook registers fn to run after every successful mutation. fn is
// called without the store lock held.
func WithChangeHook(fn func()) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		byLocalID:  make(map[string]int),
		byDelivery: make(map[string]int),
		byRemoteID: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetChangeHook replaces the change hook.
func (s *Store) SetChangeHook(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) Append(m models.Message) error {
	s.mu.Lock()
	if err := s.checkIdentity(m); err != nil {
		s.mu.Unlock()
		return err
	}
	s.insert(m)
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// UpdateByKey applies mutate to the record with deliveryKey when its status
// is expect. It reports whether a record was updated. mutate must not change
// LocalID or DeliveryKey.
func (s *Store) UpdateByKey(deliveryKey string, expect models.Status, mutate func(*models.Message)) bool {
	s.mu.Lock()
	idx, ok := s.byDelivery[deliveryKey]
	if !ok || s.records[idx].Status != expect {
		s.mu.Unlock()
		return false
	}

	updated := clone(s.records[idx])
	mutate(&updated)
	updated.LocalID = s.records[idx].LocalID
	updated.DeliveryKey = s.records[idx].DeliveryKey
	if updated.RemoteID != "" && updated.RemoteID != s.records[idx].RemoteID {
		if _, taken := s.byRemoteID[updated.RemoteID]; taken {
			s.mu.Unlock()
			return false
		}
		s.byRemoteID[updated.RemoteID] = idx
	}
	s.records[idx] = clone(updated)
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}

// Restore replaces the whole collection, typically with a loaded snapshot.
func (s *Store) Restore(msgs []models.Message) error {
	fresh := New()
	for _, m := range msgs {
		if err := fresh.checkIdentity(m); err != nil {
			return fmt.Errorf("restore %s: %w", m.LocalID, err)
		}
		fresh.insert(m)
	}

	s.mu.Lock()
	s.records = fresh.records
	s.byLocalID = fresh.byLocalID
	s.byDelivery = fresh.byDelivery
	s.byRemoteID = fresh.byRemoteID
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (s *Store) Get(localID string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byLocalID[localID]
	if !ok {
		return models.Message{}, false
	}
	return clone(s.records[idx]), true
}

func (s *Store) FindByRemoteID(remoteID string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byRemoteID[remoteID]
	if !ok {
		return models.Message{}, false
	}
	return clone(s.records[idx]), true
}

// Snapshot returns a copy of every record in display order.
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	out := make([]models.Message, len(s.records))
	for i, m := range s.records {
		out[i] = clone(m)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Message) int {
		switch {
		case models.Before(a, b):
			return -1
		case models.Before(b, a):
			return 1
		}
		return 0
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CountByStatus returns how many records are in each status.
func (s *Store) CountByStatus() map[models.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int, 3)
	for _, m := range s.records {
		counts[m.Status]++
	}
	return counts
}

func (s *Store) checkIdentity(m models.Message) error {
	if m.LocalID == "" {
		return ErrMissingIdentity
	}
	if _, ok := s.byLocalID[m.LocalID]; ok {
		return ErrDuplicateLocalID
	}
	if m.DeliveryKey != "" {
		if _, ok := s.byDelivery[m.DeliveryKey]; ok {
			return ErrDuplicateDeliveryKey
		}
	}
	if m.RemoteID != "" {
		if _, ok := s.byRemoteID[m.RemoteID]; ok {
			return ErrDuplicateRemoteID
		}
	}
	return nil
}

func (s *Store) insert(m models.Message) {
	idx := len(s.records)
	s.records = append(s.records, clone(m))
	s.byLocalID[m.LocalID] = idx
	if m.DeliveryKey != "" {
		s.byDelivery[m.DeliveryKey] = idx
	}
	if m.RemoteID != "" {
		s.byRemoteID[m.RemoteID] = idx
	}
}

// clone detaches the pointer fields so callers never share state with the store.
func clone(m models.Message) models.Message {
	if m.ConfirmedAt != nil {
		t := *m.ConfirmedAt
		m.ConfirmedAt = &t
	}
	return m
}
