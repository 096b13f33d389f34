package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wedly/backend/config"
)

var (
	ErrTokenExpired = errors.New("会话已过期")
	ErrTokenInvalid = errors.New("会话无效")
)

const (
	issuer         = "wedly"
	tokenTypeOwner = "owner"
)

// Claims 婚礼主人会话声明
// SecretVersion 为签发时管理密钥的签发时间戳，轮换密钥后旧会话随之失效
type Claims struct {
	WeddingID     string `json:"wedding_id"`
	SecretVersion int64  `json:"sv"`
	TokenType     string `json:"token_type"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret   []byte
	ownerTTL time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:   []byte(cfg.JWTSecret),
		ownerTTL: cfg.OwnerTokenTTL,
	}
}

// TTL 会话有效期
func (m *Manager) TTL() time.Duration {
	return m.ownerTTL
}

// GenerateOwnerToken 为持有管理密钥的婚礼主人签发会话
func (m *Manager) GenerateOwnerToken(weddingID string, secretVersion int64) (string, error) {
	now := time.Now()
	claims := Claims{
		WeddingID:     weddingID,
		SecretVersion: secretVersion,
		TokenType:     tokenTypeOwner,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   weddingID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.ownerTTL)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证会话 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenTypeOwner {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
