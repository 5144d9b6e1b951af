// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	log "github.com/golang/glog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound holds the error when no row has the requested key.
var ErrNotFound = errors.New("result not found")

// Repository receives the rows of a batch run.
type Repository interface {
	// Save inserts the row, or replaces the row with the same key.
	Save(ctx context.Context, r *Record) error
	Close() error
}

// Store is a Repository backed by a SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens, or creates, the SQLite database at `dsn` and migrates the results table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: glogLogger{level: logger.Warn}})
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", dsn, err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrating %q: %w", dsn, err)
	}
	log.V(1).Infof("opened results database %q", dsn)
	return &Store{db: db}, nil
}

// Save inserts the row, or replaces every column of the row with the same key.
func (s *Store) Save(ctx context.Context, r *Record) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(r).Error
	if err != nil {
		return fmt.Errorf("saving result %s/%d/%d: %w", r.Dataset, r.Configuration, r.Instance, err)
	}
	return nil
}

// Find returns the row of instance `instance` of configuration `configuration` of `dataset`.
func (s *Store) Find(ctx context.Context, dataset string, configuration, instance int) (*Record, error) {
	r := &Record{}
	err := s.db.WithContext(ctx).
		Where("dataset = ? AND configuration = ? AND instance = ?", dataset, configuration, instance).
		First(r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%d/%d", ErrNotFound, dataset, configuration, instance)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the rows of `dataset` ordered by configuration, then instance.
func (s *Store) List(ctx context.Context, dataset string) ([]Record, error) {
	var rs []Record
	err := s.db.WithContext(ctx).
		Where("dataset = ?", dataset).
		Order("configuration").Order("instance").
		Find(&rs).Error
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// glogLogger sends gorm's messages to glog. Statements are logged at verbosity 2.
type glogLogger struct {
	level logger.LogLevel
}

func (l glogLogger) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l glogLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		log.InfoDepth(1, fmt.Sprintf(msg, args...))
	}
}

func (l glogLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		log.WarningDepth(1, fmt.Sprintf(msg, args...))
	}
}

func (l glogLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		log.ErrorDepth(1, fmt.Sprintf(msg, args...))
	}
}

func (l glogLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error {
		sql, rows := fc()
		log.Errorf("%s [%d rows, %v]: %v", sql, rows, time.Since(begin), err)
		return
	}
	if log.V(2) {
		sql, rows := fc()
		log.Infof("%s [%d rows, %v]", sql, rows, time.Since(begin))
	}
}
