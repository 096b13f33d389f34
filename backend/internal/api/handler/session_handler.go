package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/service"
	"wedly/backend/pkg/response"
)

// SessionHandler 婚礼主人会话 HTTP 处理器
type SessionHandler struct {
	svc service.OwnerSessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(svc service.OwnerSessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Create 以管理密钥换取会话
// POST /api/v1/owner/session
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.OwnerSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.CreateSession(c.Request.Context(), req.Secret)
	if err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, resp)
}

// Logout 注销当前会话
// POST /api/v1/owner/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	claims, ok := GetOwnerClaims(c)
	if !ok {
		// 管理密钥直连没有会话可注销
		response.OK(c, nil)
		return
	}

	if err := h.svc.Logout(c.Request.Context(), claims); err != nil {
		handleSessionError(c, err)
		return
	}
	response.OK(c, nil)
}

func handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSecretInvalid):
		response.Unauthorized(c, 11001, err.Error())
	case errors.Is(err, service.ErrSessionRevoked):
		response.Unauthorized(c, 11002, err.Error())
	case errors.Is(err, service.ErrLogoutUnavailable):
		response.ServiceUnavailable(c, 11003, err.Error())
	default:
		writeCommonError(c, err)
	}
}
