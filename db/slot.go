// SPDX-License-Identifier: GPL-3.0-only

package db

import (
	"context"
	"errors"
	"sync"

	"courier/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessagesKey names the slot holding the serialized message log.
const MessagesKey = "courier.messages"

// Slot is a durable key/value cell. Load returns nil, nil when nothing has
// been saved yet.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type GormSlot struct {
	conn *gorm.DB
	key  string
}

func NewGormSlot(conn *gorm.DB, key string) *GormSlot {
	return &GormSlot{conn: conn, key: key}
}

func (s *GormSlot) Load(ctx context.Context) ([]byte, error) {
	var slot models.PersistedSlot
	err := s.conn.WithContext(ctx).Where("slot_key = ?", s.key).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return slot.Value, nil
}

func (s *GormSlot) Save(ctx context.Context, data []byte) error {
	slot := models.PersistedSlot{SlotKey: s.key, Value: data}
	return s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&slot).Error
}

// MemorySlot keeps the value in process memory.
type MemorySlot struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemorySlot(initial []byte) *MemorySlot {
	return &MemorySlot{data: initial}
}

func (s *MemorySlot) Load(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *MemorySlot) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (s *MemorySlot) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
