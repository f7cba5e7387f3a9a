// SPDX-License-Identifier: GPL-3.0-only

package models

import "time"

// PersistedSlot is a single named blob in the local database.
type PersistedSlot struct {
	SlotKey   string `gorm:"column:slot_key;primaryKey;size:191"`
	Value     []byte `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
