package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"wedly/backend/config"
	"wedly/backend/pkg/jwt"
)

type memoryBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
}

func (b *memoryBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = ttl
	return nil
}

func (b *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.jtis[jti]
	return ok, nil
}

func setupTestSessionService(withBlacklist bool) (OwnerSessionService, *jwt.Manager, *mockRepos) {
	repo, m := newMockRepository()
	mgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:     "test-secret-key-for-unit-testing-2026",
		OwnerTokenTTL: time.Hour,
	})
	var bl TokenBlacklist
	if withBlacklist {
		bl = &memoryBlacklist{jtis: make(map[string]time.Duration)}
	}
	return NewOwnerSessionService(repo, mgr, bl, zap.NewNop()), mgr, m
}

func TestCreateSession_AndVerify(t *testing.T) {
	svc, mgr, m := setupTestSessionService(true)
	w, _ := seedWedding(m)

	resp, err := svc.CreateSession(context.Background(), w.SecretToken)
	if err != nil {
		t.Fatalf("CreateSession 应成功: %v", err)
	}
	if resp.WeddingID != w.WeddingID || resp.ExpiresIn != 3600 {
		t.Errorf("会话信息错误: %+v", resp)
	}

	claims, err := mgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("签发的令牌应可解析: %v", err)
	}
	if err := svc.VerifySession(context.Background(), claims); err != nil {
		t.Errorf("新会话应有效: %v", err)
	}

	if _, err := svc.CreateSession(context.Background(), "wrong"); !errors.Is(err, ErrSecretInvalid) {
		t.Errorf("期望 ErrSecretInvalid，实际: %v", err)
	}
}

func TestVerifySecret(t *testing.T) {
	svc, _, m := setupTestSessionService(false)
	w, _ := seedWedding(m)

	id, err := svc.VerifySecret(context.Background(), w.SecretToken)
	if err != nil || id != w.WeddingID {
		t.Errorf("期望 %s，实际 %s (%v)", w.WeddingID, id, err)
	}
	for _, secret := range []string{"", "nope"} {
		if _, err := svc.VerifySecret(context.Background(), secret); !errors.Is(err, ErrSecretInvalid) {
			t.Errorf("secret=%q 期望 ErrSecretInvalid，实际: %v", secret, err)
		}
	}
}

func TestVerifySession_RevokedAfterRotation(t *testing.T) {
	svc, mgr, m := setupTestSessionService(false)
	w, _ := seedWedding(m)

	resp, _ := svc.CreateSession(context.Background(), w.SecretToken)
	claims, _ := mgr.ParseToken(resp.AccessToken)

	_ = m.wedding.RotateSecret(context.Background(), w.WeddingID, "rotated-secret", w.SecretIssuedAt.Add(time.Second))
	if err := svc.VerifySession(context.Background(), claims); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("密钥轮换后会话应失效，实际: %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc, mgr, m := setupTestSessionService(true)
	w, _ := seedWedding(m)

	resp, _ := svc.CreateSession(context.Background(), w.SecretToken)
	claims, _ := mgr.ParseToken(resp.AccessToken)

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if err := svc.VerifySession(context.Background(), claims); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("注销后会话应失效，实际: %v", err)
	}

	noRedis, _, _ := setupTestSessionService(false)
	if err := noRedis.Logout(context.Background(), claims); !errors.Is(err, ErrLogoutUnavailable) {
		t.Errorf("未配置黑名单时期望 ErrLogoutUnavailable，实际: %v", err)
	}
}
