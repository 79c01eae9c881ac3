package repository

import (
	"context"

	"bookkeeping/internal/model"

	"gorm.io/gorm"
)

type BackupRepository interface {
	Create(ctx context.Context, backup *model.Backup) error
	Latest(ctx context.Context) (*model.Backup, error)
	Count(ctx context.Context) (int64, error)
}

type backupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) Create(ctx context.Context, backup *model.Backup) error {
	return GetDB(ctx, r.db).Create(backup).Error
}

func (r *backupRepository) Latest(ctx context.Context) (*model.Backup, error) {
	var backup model.Backup
	if err := GetDB(ctx, r.db).Order("created_at DESC, id DESC").First(&backup).Error; err != nil {
		return nil, err
	}
	return &backup, nil
}

func (r *backupRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Backup{}).Count(&n).Error
	return n, err
}
