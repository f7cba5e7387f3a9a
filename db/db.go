// SPDX-License-Identifier: GPL-3.0-only

package db

import (
	"errors"
	"fmt"

	"courier/commons"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrMissingDSN = errors.New("missing DSN")

// Open connects to the database selected by cfg.DBDialect.
func Open(cfg commons.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	var dbInfo string
	dbDialect := cfg.DBDialect

	switch dbDialect {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN environment variable is required for postgres dialect: %w", ErrMissingDSN)
		}
		commons.Logger.Debug("Connecting to PostgreSQL database")
		dialector = postgres.Open(cfg.PostgresDSN)
		dbInfo = "PostgreSQL database (DSN hidden)"
	case "mysql":
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("MYSQL_DSN environment variable is required for mysql dialect: %w", ErrMissingDSN)
		}
		commons.Logger.Debug("Connecting to MySQL database")
		dialector = mysql.Open(cfg.MySQLDSN)
		dbInfo = "MySQL database (DSN hidden)"
	default:
		commons.Logger.Debug("Connecting to SQLite database at ", cfg.DBPath)
		dialector = sqlite.Open(cfg.DBPath)
		dbDialect = "sqlite"
		dbInfo = cfg.DBPath
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbDialect, err)
	}
	commons.Logger.Infof("Database connection established. %s %s, %s %s",
		"dialect:", dbDialect,
		"database:", dbInfo,
	)
	return conn, nil
}

func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
