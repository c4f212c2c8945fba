package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	Key       string     `gorm:"column:state_key;primaryKey;size:255"`
	Value     []byte     `gorm:"not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "state_entries"
}

// GormRepo stores values in the state_entries table. Expired rows read as
// missing and are removed by Purge.
type GormRepo struct {
	DB  *gorm.DB
	TTL time.Duration
	Now func() time.Time
}

func (r *GormRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *GormRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := r.DB.WithContext(ctx).Where("state_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.ExpiresAt != nil && !e.ExpiresAt.After(r.now()) {
		return nil, ErrNotFound
	}
	return e.Value, nil
}

func (r *GormRepo) Set(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: value}
	if r.TTL > 0 {
		exp := r.now().Add(r.TTL)
		e.ExpiresAt = &exp
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&e).Error
}

func (r *GormRepo) Delete(ctx context.Context, key string) error {
	return r.DB.WithContext(ctx).Where("state_key = ?", key).Delete(&Entry{}).Error
}

// Purge deletes expired rows and reports how many were removed.
func (r *GormRepo) Purge(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", r.now()).
		Delete(&Entry{})
	return res.RowsAffected, res.Error
}
