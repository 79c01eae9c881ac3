package repository

import (
	"context"

	"bookkeeping/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	List(ctx context.Context) ([]model.SystemSetting, error)
	Get(ctx context.Context, key string) (*model.SystemSetting, error)
	Upsert(ctx context.Context, setting *model.SystemSetting) error
	ReplaceAll(ctx context.Context, settings []model.SystemSetting) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) List(ctx context.Context) ([]model.SystemSetting, error) {
	settings := make([]model.SystemSetting, 0)
	if err := GetDB(ctx, r.db).Order("setting_key ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *settingRepository) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	var setting model.SystemSetting
	if err := GetDB(ctx, r.db).First(&setting, "setting_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "setting_type", "description", "updated_at"}),
	}).Create(setting).Error
}

// ReplaceAll deletes every setting and inserts the given set; callers provide the transaction
func (r *settingRepository) ReplaceAll(ctx context.Context, settings []model.SystemSetting) error {
	db := GetDB(ctx, r.db)
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.SystemSetting{}).Error; err != nil {
		return err
	}
	if len(settings) == 0 {
		return nil
	}
	return db.Create(&settings).Error
}
