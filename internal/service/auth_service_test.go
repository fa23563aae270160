package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"villasun/backend/config"
	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/pkg/jwt"
)

// ── Mock Token 黑名单 ──

type mockBlacklist struct {
	revoked map[string]time.Duration
	err     error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── 测试辅助 ──

func testAuthConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
	}
}

func setupTestAuthService() (AuthService, *mockRepos, *mockBlacklist, *jwt.Manager) {
	cfg := testAuthConfig()
	mocks := newMockRepos()
	blacklist := newMockBlacklist()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewAuthService(cfg, mocks.repository(), jwtMgr, blacklist, zap.NewNop())
	return svc, mocks, blacklist, jwtMgr
}

// createTestAccount 写入档案和带密码的认证身份
func createTestAccount(mocks *mockRepos, id, role, password string) *model.Profile {
	p := mocks.addProfile(id, "Test "+id, role)
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	mocks.identities.items[id].PasswordHash = string(hash)
	return p
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    p.Email,
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("Token 不应为空")
	}
	if result.User.ID != "staff-1" {
		t.Errorf("期望 User.ID=staff-1，实际=%s", result.User.ID)
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	if mocks.identities.items["staff-1"].LastSignInAt == nil {
		t.Error("登录后应记录登录时间")
	}
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "STAFF-1@VILLASUN.TEST",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("邮箱大小写不同也应登录成功: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    p.Email,
		Password: "wrong_password",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@villasun.test",
		Password: "password123",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_RoleFromProfile(t *testing.T) {
	svc, mocks, _, jwtMgr := setupTestAuthService()
	p := createTestAccount(mocks, "admin-1", model.RoleAdmin, "password123")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{Email: p.Email, Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("期望 Role=admin，实际=%s", claims.Role)
	}
}

// ── 刷新测试 ──

func TestRefresh_Success(t *testing.T) {
	svc, mocks, blacklist, jwtMgr := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: p.Email, Password: "password123"})
	old, _ := jwtMgr.ParseToken(login.RefreshToken)

	result, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("新 AccessToken 不应为空")
	}
	if _, ok := blacklist.revoked[old.ID]; !ok {
		t.Error("旧 RefreshToken 应被加入黑名单")
	}

	// 再次使用旧 Token 应失败
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("期望 ErrInvalidRefresh，实际: %v", err)
	}
}

func TestRefresh_PicksUpRoleChange(t *testing.T) {
	svc, mocks, _, jwtMgr := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: p.Email, Password: "password123"})
	p.Role = model.RoleAdmin

	result, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	claims, _ := jwtMgr.ParseToken(result.AccessToken)
	if claims.Role != model.RoleAdmin {
		t.Errorf("刷新后角色应为 admin，实际=%s", claims.Role)
	}
}

func TestRefresh_AccessTokenNotAllowed(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: p.Email, Password: "password123"})
	if _, err := svc.Refresh(context.Background(), login.AccessToken); !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("期望 ErrInvalidRefresh，实际: %v", err)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	if _, err := svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("期望 ErrInvalidRefresh，实际: %v", err)
	}
}

func TestRefresh_BlacklistDownFailsOpen(t *testing.T) {
	svc, mocks, blacklist, _ := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: p.Email, Password: "password123"})
	blacklist.err = errors.New("redis down")

	if _, err := svc.Refresh(context.Background(), login.RefreshToken); err != nil {
		t.Errorf("黑名单不可用时应降级放行，实际: %v", err)
	}
}

// ── 登出测试 ──

func TestLogout_RevokesBothTokens(t *testing.T) {
	svc, mocks, blacklist, jwtMgr := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: p.Email, Password: "password123"})
	access, _ := jwtMgr.ParseToken(login.AccessToken)
	refresh, _ := jwtMgr.ParseToken(login.RefreshToken)

	if err := svc.Logout(context.Background(), access.ID, access.ExpiresAt.Time, login.RefreshToken); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if len(blacklist.revoked) != 2 {
		t.Errorf("期望吊销 2 个 Token，实际=%d", len(blacklist.revoked))
	}
	if _, ok := blacklist.revoked[refresh.ID]; !ok {
		t.Error("RefreshToken 应被吊销")
	}
}

// ── 修改密码 / 当前用户 ──

func TestChangePassword_Success(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	p := createTestAccount(mocks, "staff-1", model.RoleStaff, "oldpass123")

	err := svc.ChangePassword(context.Background(), "staff-1", &dto.ChangePasswordRequest{
		OldPassword: "oldpass123",
		NewPassword: "newpass456",
	})
	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Email: p.Email, Password: "newpass456"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	createTestAccount(mocks, "staff-1", model.RoleStaff, "oldpass123")

	err := svc.ChangePassword(context.Background(), "staff-1", &dto.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newpass456",
	})
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("期望 ErrWrongPassword，实际: %v", err)
	}
}

func TestMe_Success(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	createTestAccount(mocks, "staff-1", model.RoleStaff, "password123")

	result, err := svc.Me(context.Background(), "staff-1")
	if err != nil {
		t.Fatalf("Me 应成功: %v", err)
	}
	if result.FullName != "Test staff-1" {
		t.Errorf("期望 FullName=Test staff-1，实际=%s", result.FullName)
	}
}

func TestMe_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
