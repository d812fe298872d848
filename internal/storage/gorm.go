package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type snapshotRecord struct {
	Key       string `gorm:"column:snapshot_key;primaryKey"`
	Data      string `gorm:"column:data;type:text;not null"`
	UpdatedAt time.Time
}

func (snapshotRecord) TableName() string { return "session_snapshots" }

// Gorm keeps snapshots in a single table keyed by device key.
type Gorm struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func NewGorm(ctx context.Context, db *gorm.DB) (*Gorm, error) {
	if err := db.WithContext(ctx).AutoMigrate(&snapshotRecord{}); err != nil {
		return nil, fmt.Errorf("migrate session_snapshots: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Load(ctx context.Context, key string) ([]byte, error) {
	var rec snapshotRecord
	err := g.db.WithContext(ctx).First(&rec, "snapshot_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return []byte(rec.Data), nil
}

func (g *Gorm) Save(ctx context.Context, key string, data []byte) error {
	rec := snapshotRecord{Key: key, Data: string(data)}
	if err := g.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (g *Gorm) Delete(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Delete(&snapshotRecord{}, "snapshot_key = ?", key).Error; err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
