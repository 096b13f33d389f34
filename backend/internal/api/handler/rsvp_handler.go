package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/service"
	"wedly/backend/pkg/response"
)

// RSVPHandler 回复模块 HTTP 处理器
type RSVPHandler struct {
	svc service.RSVPService
}

// NewRSVPHandler 创建 RSVPHandler
func NewRSVPHandler(svc service.RSVPService) *RSVPHandler {
	return &RSVPHandler{svc: svc}
}

// Submit 访客提交或修改回复
// POST /api/v1/rsvp/:code
func (h *RSVPHandler) Submit(c *gin.Context) {
	var req dto.SubmitRSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), c.Param("code"), &req, requestLocale(c))
	if err != nil {
		handleRSVPError(c, err)
		return
	}

	if resp.Updated {
		response.OKWithMessage(c, resp.Message, resp)
		return
	}
	response.Created(c, resp)
}

// List 主人查看回复列表
// GET /api/v1/manage/rsvps?attending=&page=&page_size=
func (h *RSVPHandler) List(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	var req dto.RSVPListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	list, total, err := h.svc.List(c.Request.Context(), weddingID, &req)
	if err != nil {
		handleRSVPError(c, err)
		return
	}
	response.OKPage(c, list, total, req.Page, req.PageSize)
}

func handleRSVPError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInvitation),
		errors.Is(err, service.ErrInvitationNotFound):
		response.NotFound(c, 22001, invitationNotFoundMessage)
	case errors.Is(err, service.ErrGuestLimitExceeded):
		response.Unprocessable(c, 23001, err.Error())
	case errors.Is(err, service.ErrUnauthorizedEvent):
		response.Unprocessable(c, 23002, err.Error())
	case errors.Is(err, service.ErrMissingRequiredAnswer):
		response.Unprocessable(c, 23003, err.Error())
	case errors.Is(err, service.ErrWeddingArchived):
		response.Unprocessable(c, 23004, err.Error())
	default:
		writeCommonError(c, err)
	}
}
