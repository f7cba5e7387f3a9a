// SPDX-License-Identifier: GPL-3.0-only

package migrations

import (
	"fmt"

	"courier/commons"
	"courier/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func List() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "001_create_persisted_slots",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.PersistedSlot{}); err != nil {
					return fmt.Errorf("failed to create persisted_slots: %w", err)
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&models.PersistedSlot{})
			},
		},
	}
}

// Run applies every pending migration.
func Run(conn *gorm.DB) error {
	commons.Logger.Info("Running database migrations")
	m := gormigrate.New(conn, gormigrate.DefaultOptions, List())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	commons.Logger.Info("Database migration completed")
	return nil
}
