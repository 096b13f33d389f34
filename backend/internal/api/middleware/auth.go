package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"wedly/backend/internal/service"
	"wedly/backend/pkg/jwt"
	"wedly/backend/pkg/response"
)

// 上下文键
const (
	ContextWeddingID   = "wedding_id"
	ContextOwnerClaims = "owner_claims"
)

// HeaderWeddingSecret 管理密钥直连请求头
const HeaderWeddingSecret = "X-Wedding-Secret"

// OwnerVerifier 婚礼主人身份校验
type OwnerVerifier interface {
	VerifySecret(ctx context.Context, secret string) (string, error)
	VerifySession(ctx context.Context, claims *jwt.Claims) error
}

// OwnerAuth 婚礼主人认证中间件
// 支持 X-Wedding-Secret: <管理密钥> 或 Authorization: Bearer <主人会话>
func OwnerAuth(jwtMgr *jwt.Manager, verifier OwnerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret := strings.TrimSpace(c.GetHeader(HeaderWeddingSecret)); secret != "" {
			weddingID, err := verifier.VerifySecret(c.Request.Context(), secret)
			if err != nil {
				abortOwnerAuth(c, err)
				return
			}
			c.Set(ContextWeddingID, weddingID)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证信息")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, 11002, service.ErrSessionRevoked.Error())
			} else {
				response.Unauthorized(c, 10002, "会话无效")
			}
			c.Abort()
			return
		}

		if err := verifier.VerifySession(c.Request.Context(), claims); err != nil {
			abortOwnerAuth(c, err)
			return
		}

		c.Set(ContextWeddingID, claims.WeddingID)
		c.Set(ContextOwnerClaims, claims)
		c.Next()
	}
}

func abortOwnerAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSecretInvalid):
		response.Unauthorized(c, 11001, err.Error())
	case errors.Is(err, service.ErrSessionRevoked):
		response.Unauthorized(c, 11002, err.Error())
	default:
		response.InternalError(c)
	}
	c.Abort()
}
