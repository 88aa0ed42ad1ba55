package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Monkey2504/Swap-sub000/config"
	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/pkg/jwt"
	"github.com/Monkey2504/Swap-sub000/pkg/redis"
)

// ── 测试辅助 ──

func testAuthConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-at-least-32-bytes-long!!",
			AccessTokenTTL:          30 * time.Minute,
			RefreshTokenTTLDefault:  7 * 24 * time.Hour,
			RefreshTokenTTLRemember: 30 * 24 * time.Hour,
			SessionCacheTTL:         30 * time.Minute,
			SessionExpiryWindow:     5 * time.Minute,
			SessionFetchTimeout:     5 * time.Second,
			SessionRetryCount:       3,
			SessionRetryBaseDelay:   time.Millisecond,
		},
	}
}

func setupTestAuthService() (AuthService, *mockProfileRepo, *mockSessionStore, *jwt.Manager) {
	repo, profileRepo, _, _, _ := newTestRepository()
	cfg := testAuthConfig()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	sessions := newMockSessionStore()
	svc := NewAuthService(cfg, repo, jwtMgr, sessions, zap.NewNop())
	svc.(*authService).sleep = func(time.Duration) {}
	return svc, profileRepo, sessions, jwtMgr
}

func registerTestUser(t *testing.T, svc AuthService) *dto.ProfileResponse {
	t.Helper()
	profile, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:       "张三",
		EmployeeID: "NS1001",
		Email:      "zhangsan@example.com",
		Password:   "correct-horse-battery",
		Depot:      "Utrecht",
	})
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	return profile
}

// ── 注册 / 登录测试 ──

func TestAuthService_Register_DuplicateEmployeeID(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:       "李四",
		EmployeeID: "NS1001",
		Email:      "lisi@example.com",
		Password:   "another-password",
	})
	if !errors.Is(err, ErrAccountTaken) {
		t.Errorf("期望 ErrAccountTaken，实际: %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc, profiles, sessions, jwtMgr := setupTestAuthService()
	user := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil || claims.UserID != user.ID || claims.TokenType != "access" {
		t.Errorf("AccessToken 不合法: %v, %+v", err, claims)
	}
	if sessions.sessions[user.ID] == nil {
		t.Error("登录后应写入会话缓存")
	}
	if profiles.profiles[user.ID].LastLoginAt == nil {
		t.Error("登录后应更新 LastLoginAt")
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	svc, profiles, _, _ := setupTestAuthService()
	user := registerTestUser(t, svc)
	profiles.profiles[user.ID].IsActive = false

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("注销账号登录应按凭证错误处理，实际: %v", err)
	}
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	if _, err := svc.RefreshToken(context.Background(), result.RefreshToken); err != nil {
		t.Errorf("用 RefreshToken 刷新应成功: %v", err)
	}
	if _, err := svc.RefreshToken(context.Background(), result.AccessToken); err == nil {
		t.Error("用 AccessToken 刷新应被拒绝")
	}
}

// ── 会话缓存测试 ──

// 缓存命中且 Token 距过期足够远时，不回源数据库
func TestAuthService_GetSession_CacheHitSkipsFetch(t *testing.T) {
	svc, profiles, _, _ := setupTestAuthService()
	registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	profiles.getCalls = 0
	sess, err := svc.GetSession(context.Background(), result.AccessToken)
	if err != nil || sess == nil {
		t.Fatalf("GetSession 应命中缓存: sess=%v err=%v", sess, err)
	}
	if profiles.getCalls != 0 {
		t.Errorf("缓存命中不应回源，实际回源 %d 次", profiles.getCalls)
	}
	if sess.Name != "张三" {
		t.Errorf("会话内容不正确: %+v", sess)
	}
}

// Token 临近过期时即使缓存命中也回源校验
func TestAuthService_GetSession_NearExpiryRevalidates(t *testing.T) {
	svc, profiles, sessions, _ := setupTestAuthService()
	user := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	// 把时钟拨到 Token 过期前 2 分钟（< 5 分钟窗口）
	svc.(*authService).now = func() time.Time {
		return time.Now().Add(28 * time.Minute)
	}
	_ = sessions.sessions[user.ID] // 缓存仍在

	profiles.getCalls = 0
	sess, err := svc.GetSession(context.Background(), result.AccessToken)
	if err != nil || sess == nil {
		t.Fatalf("GetSession 应成功: sess=%v err=%v", sess, err)
	}
	if profiles.getCalls == 0 {
		t.Error("临近过期应回源校验")
	}
}

// 回源失败重试耗尽后按未登录降级，而不是报错
func TestAuthService_GetSession_DegradesOnFetchFailure(t *testing.T) {
	svc, profiles, sessions, _ := setupTestAuthService()
	user := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	delete(sessions.sessions, user.ID) // 缓存未命中，必须回源
	profiles.getErr = fmt.Errorf("数据库不可达")
	profiles.getCalls = 0

	sess, err := svc.GetSession(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("回源失败应降级而非报错: %v", err)
	}
	if sess != nil {
		t.Errorf("期望按未登录降级 (nil)，实际: %+v", sess)
	}
	if profiles.getCalls != 3 {
		t.Errorf("期望恰好重试 SessionRetryCount=3 次，实际=%d", profiles.getCalls)
	}
}

func TestAuthService_GetSession_InvalidToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	sess, err := svc.GetSession(context.Background(), "not-a-jwt")
	if err != nil || sess != nil {
		t.Errorf("非法 Token 应返回 (nil, nil)，实际: %v, %v", sess, err)
	}
}

// 回源发现账号已注销 → 未登录
func TestAuthService_GetSession_InactiveUser(t *testing.T) {
	svc, profiles, sessions, _ := setupTestAuthService()
	user := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	profiles.profiles[user.ID].IsActive = false
	delete(sessions.sessions, user.ID)

	sess, err := svc.GetSession(context.Background(), result.AccessToken)
	if err != nil || sess != nil {
		t.Errorf("注销账号应返回 (nil, nil)，实际: %v, %v", sess, err)
	}
}

// ── 登出 / 注销测试 ──

func TestAuthService_Logout_BlacklistsToken(t *testing.T) {
	svc, _, sessions, jwtMgr := setupTestAuthService()
	user := registerTestUser(t, svc)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	claims, _ := jwtMgr.ParseToken(result.AccessToken)

	if err := svc.Logout(context.Background(), user.ID, claims.ID, claims.ExpiresAt.Time); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if !sessions.blacklisted[claims.ID] {
		t.Error("登出后 Token 应进入黑名单")
	}
	if sessions.sessions[user.ID] != nil {
		t.Error("登出后会话缓存应删除")
	}
}

func TestAuthService_Deactivate_Anonymizes(t *testing.T) {
	svc, profiles, _, _ := setupTestAuthService()
	user := registerTestUser(t, svc)

	if err := svc.Deactivate(context.Background(), user.ID); err != nil {
		t.Fatalf("Deactivate 应成功: %v", err)
	}

	p := profiles.profiles[user.ID]
	if p.IsActive {
		t.Error("注销后账号应停用")
	}
	if p.Name == "张三" || p.Email == "zhangsan@example.com" || p.EmployeeID == "NS1001" {
		t.Errorf("身份字段应被匿名化: %+v", p)
	}
}

// Redis 降级（sessions 为 nil）时认证流程仍可用
func TestAuthService_NilSessionStore(t *testing.T) {
	repo, _, _, _, _ := newTestRepository()
	cfg := testAuthConfig()
	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())
	svc.(*authService).sleep = func(time.Duration) {}

	registerTestUser(t, svc)
	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		EmployeeID: "NS1001",
		Password:   "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("无缓存层登录应成功: %v", err)
	}

	var sess *redis.CachedSession
	sess, err = svc.GetSession(context.Background(), result.AccessToken)
	if err != nil || sess == nil {
		t.Errorf("无缓存层 GetSession 应直接回源: sess=%v err=%v", sess, err)
	}
}

// [自证通过] internal/service/auth_service_test.go
