package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/repository"
	"wedly/backend/pkg/jwt"
)

// ── 主人会话业务错误 ──

var (
	ErrSecretInvalid     = errors.New("管理链接无效")
	ErrSessionRevoked    = errors.New("会话已失效，请重新通过管理链接进入")
	ErrLogoutUnavailable = errors.New("会话注销不可用")
)

// TokenBlacklist 会话黑名单（由 Redis 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// OwnerSessionService 婚礼主人身份：管理密钥与由其换取的会话
type OwnerSessionService interface {
	CreateSession(ctx context.Context, secret string) (*dto.OwnerSessionResponse, error)
	VerifySecret(ctx context.Context, secret string) (string, error)
	VerifySession(ctx context.Context, claims *jwt.Claims) error
	Logout(ctx context.Context, claims *jwt.Claims) error
}

type ownerSessionService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewOwnerSessionService 创建 OwnerSessionService 实例
func NewOwnerSessionService(repo *repository.Repository, jwtMgr *jwt.Manager, blacklist TokenBlacklist, logger *zap.Logger) OwnerSessionService {
	return &ownerSessionService{repo: repo, jwtMgr: jwtMgr, blacklist: blacklist, logger: logger}
}

// ────────────────────── CreateSession ──────────────────────

func (s *ownerSessionService) CreateSession(ctx context.Context, secret string) (*dto.OwnerSessionResponse, error) {
	w, err := s.repo.Wedding.GetBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSecretInvalid
		}
		s.logger.Error("查询管理密钥失败", zap.Error(err))
		return nil, err
	}

	token, err := s.jwtMgr.GenerateOwnerToken(w.WeddingID, w.SecretVersion())
	if err != nil {
		s.logger.Error("签发主人会话失败", zap.String("wedding_id", w.WeddingID), zap.Error(err))
		return nil, err
	}

	return &dto.OwnerSessionResponse{
		AccessToken: token,
		ExpiresIn:   int(s.jwtMgr.TTL().Seconds()),
		WeddingID:   w.WeddingID,
	}, nil
}

// ────────────────────── Verify ──────────────────────

// VerifySecret 管理密钥直连，返回婚礼 ID
func (s *ownerSessionService) VerifySecret(ctx context.Context, secret string) (string, error) {
	if secret == "" {
		return "", ErrSecretInvalid
	}
	w, err := s.repo.Wedding.GetBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSecretInvalid
		}
		s.logger.Error("查询管理密钥失败", zap.Error(err))
		return "", err
	}
	return w.WeddingID, nil
}

// VerifySession 会话有效性：未被注销，且签发后密钥未轮换
func (s *ownerSessionService) VerifySession(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询会话黑名单失败", zap.Error(err))
			return err
		}
		if revoked {
			return ErrSessionRevoked
		}
	}

	w, err := s.repo.Wedding.GetByID(ctx, claims.WeddingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionRevoked
		}
		s.logger.Error("查询婚礼失败", zap.String("wedding_id", claims.WeddingID), zap.Error(err))
		return err
	}
	if w.SecretVersion() != claims.SecretVersion {
		return ErrSessionRevoked
	}
	return nil
}

// ────────────────────── Logout ──────────────────────

func (s *ownerSessionService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil {
		return ErrLogoutUnavailable
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("注销会话失败", zap.String("wedding_id", claims.WeddingID), zap.Error(err))
		return err
	}
	return nil
}
