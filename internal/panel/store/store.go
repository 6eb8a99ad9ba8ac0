// Package store is the control plane's persistence layer: a thin wrapper
// over gorm.DB (gorm.io/gorm + gorm.io/driver/postgres, per SPEC_FULL.md
// §2.2) grouping queries by entity, with the handful of transactional
// invariants from spec.md §5 ("Ordering guarantees") implemented as
// explicit gorm.DB.Transaction blocks rather than left to callers.
package store

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/raptor-panel/raptor/internal/panel/model"
)

// Store wraps the database connection pool. spec.md §5 "Shared resources"
// caps the control-plane pool at 5 connections with short transactions.
type Store struct {
	DB  *gorm.DB
	Log *logrus.Entry
}

// txDB names the transaction handle gorm.DB.Transaction callbacks receive,
// used across this package's multi-statement invariant blocks.
type txDB = gorm.DB

func Open(log *logrus.Entry, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{DB: db, Log: log}, nil
}

// Migrate runs GORM's auto-migrator over the full model set. The
// out-of-scope "migration runner" named in spec.md §1 is this call — a
// hand-rolled SQL migration tool is not named anywhere in the retrieval
// pack, so AutoMigrate is the idiomatic gorm stand-in for it.
func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(model.AllModels()...)
}
