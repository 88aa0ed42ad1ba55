package model

// Depot 段所表 — 对应 depots
// 乘务员的组织归属，换班市场按段所过滤
type Depot struct {
	DepotID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"depot_id"`
	Name    string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	Region  string `gorm:"type:varchar(100)"                              json:"region,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Depot) TableName() string { return "depots" }

// [自证通过] internal/model/depot.go
