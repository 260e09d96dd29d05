package auditcache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&cacheEntryModel{})
}

type cacheEntryModel struct {
	ServiceID  string    `gorm:"column:service_id;primaryKey"`
	InputHash  string    `gorm:"column:input_hash;primaryKey"`
	Result     []byte    `gorm:"column:cached_result"`
	Confidence float64   `gorm:"column:confidence"`
	ExpiresAt  time.Time `gorm:"column:expires_at"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (cacheEntryModel) TableName() string {
	return "audit_cache_entries"
}

func (s *GormStore) Get(ctx context.Context, serviceID string, inputHash string) (Entry, bool, error) {
	var row cacheEntryModel
	err := s.db.WithContext(ctx).
		Where("service_id = ? AND input_hash = ?", serviceID, inputHash).
		First(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{
		ServiceID:  row.ServiceID,
		InputHash:  row.InputHash,
		Result:     row.Result,
		Confidence: row.Confidence,
		ExpiresAt:  row.ExpiresAt.UTC(),
		CreatedAt:  row.CreatedAt.UTC(),
	}, true, nil
}

func (s *GormStore) Put(ctx context.Context, entry Entry) error {
	if entry.InputHash == "" {
		return ErrInvalidEntry
	}
	row := cacheEntryModel{
		ServiceID:  entry.ServiceID,
		InputHash:  entry.InputHash,
		Result:     entry.Result,
		Confidence: entry.Confidence,
		ExpiresAt:  entry.ExpiresAt.UTC(),
		CreatedAt:  entry.CreatedAt.UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_id"}, {Name: "input_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"cached_result", "confidence", "expires_at", "created_at"}),
	}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, serviceID string, inputHash string) error {
	return s.db.WithContext(ctx).
		Where("service_id = ? AND input_hash = ?", serviceID, inputHash).
		Delete(&cacheEntryModel{}).
		Error
}

var _ Store = (*GormStore)(nil)
