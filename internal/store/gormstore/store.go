// Package gormstore keeps the current match id in Postgres through gorm, for
// deployments where several client processes share one database.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/loteria-client/internal/store"
)

// CurrentMatch is the single persisted row, keyed by client profile so several
// users can share a database.
type CurrentMatch struct {
	Profile   string `gorm:"primaryKey;size:128"`
	MatchID   int64  `gorm:"not null"`
	UpdatedAt time.Time
}

func (CurrentMatch) TableName() string { return "current_matches" }

type Store struct {
	db      *gorm.DB
	profile string
}

// Open connects to Postgres and migrates the table.
func Open(dsn, profile string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return New(db, profile)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, profile string) (*Store, error) {
	if db == nil {
		return nil, store.ErrNotConfigured
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	if err := db.AutoMigrate(&CurrentMatch{}); err != nil {
		return nil, fmt.Errorf("migrate current_matches: %w", err)
	}
	return &Store{db: db, profile: profile}, nil
}

func (s *Store) Load(ctx context.Context) (int64, error) {
	var row CurrentMatch
	err := s.db.WithContext(ctx).Where("profile = ?", s.profile).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load current match: %w", err)
	}
	return row.MatchID, nil
}

func (s *Store) Save(ctx context.Context, matchID int64) error {
	if matchID <= 0 {
		return store.ErrInvalidMatchID
	}
	row := CurrentMatch{Profile: s.profile, MatchID: matchID, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile"}},
		DoUpdates: clause.AssignmentColumns([]string{"match_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save current match: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("profile = ?", s.profile).Delete(&CurrentMatch{}).Error
	if err != nil {
		return fmt.Errorf("clear current match: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.MatchStore = (*Store)(nil)
