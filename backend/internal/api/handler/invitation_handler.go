package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/service"
	"wedly/backend/pkg/response"
)

// invitationNotFoundMessage 邀请码不存在与无效使用同一响应，不泄露邀请码是否存在
const invitationNotFoundMessage = "邀请不存在或已失效"

// InvitationHandler 邀请模块 HTTP 处理器（含访客公开接口）
type InvitationHandler struct {
	svc         service.InvitationService
	calendarSvc service.CalendarService
}

// NewInvitationHandler 创建 InvitationHandler
func NewInvitationHandler(svc service.InvitationService, calendarSvc service.CalendarService) *InvitationHandler {
	return &InvitationHandler{svc: svc, calendarSvc: calendarSvc}
}

// ── 主人接口 ──

// Create 批量创建邀请，逐条返回结果
// POST /api/v1/manage/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	var req dto.CreateInvitationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.CreateInvitations(c.Request.Context(), weddingID, req.Guests)
	if err != nil {
		handleInvitationError(c, err)
		return
	}
	writeBatchResult(c, resp)
}

// ImportGuestList 上传宾客名单 Excel，解析后按批量创建处理
// POST /api/v1/manage/invitations/import (multipart/form-data, field="file")
func (h *InvitationHandler) ImportGuestList(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			response.BadRequest(c, 22005, "请上传宾客名单文件")
			return
		}
		writeBindError(c, err)
		return
	}
	defer file.Close()

	guests, err := h.svc.ParseGuestListFile(file)
	if err != nil {
		response.BadRequest(c, 22005, err.Error())
		return
	}

	resp, err := h.svc.CreateInvitations(c.Request.Context(), weddingID, guests)
	if err != nil {
		handleInvitationError(c, err)
		return
	}
	writeBatchResult(c, resp)
}

// List 邀请列表
// GET /api/v1/manage/invitations?status=&search=&page=&page_size=
func (h *InvitationHandler) List(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	var req dto.InvitationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	list, total, err := h.svc.List(c.Request.Context(), weddingID, &req)
	if err != nil {
		handleInvitationError(c, err)
		return
	}
	response.OKPage(c, list, total, req.Page, req.PageSize)
}

// Get 邀请详情
// GET /api/v1/manage/invitations/:id
func (h *InvitationHandler) Get(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, service.ErrInvitationIDNotFound, handleInvitationError)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), weddingID, id)
	if err != nil {
		handleInvitationError(c, err)
		return
	}
	response.OK(c, resp)
}

// Update 修改邀请（邀请码不变）
// PUT /api/v1/manage/invitations/:id
func (h *InvitationHandler) Update(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, service.ErrInvitationIDNotFound, handleInvitationError)
	if !ok {
		return
	}

	var req dto.UpdateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), weddingID, id, &req)
	if err != nil {
		handleInvitationError(c, err)
		return
	}
	response.OK(c, resp)
}

// QRCode 邀请二维码 PNG
// GET /api/v1/manage/invitations/:id/qrcode?size=256
func (h *InvitationHandler) QRCode(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, service.ErrInvitationIDNotFound, handleInvitationError)
	if !ok {
		return
	}

	size, _ := strconv.Atoi(c.Query("size"))
	png, code, err := h.svc.QRCode(c.Request.Context(), weddingID, id, size)
	if err != nil {
		handleInvitationError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="invitation-`+code+`.png"`)
	c.Data(http.StatusOK, "image/png", png)
}

// ── 访客公开接口 ──

// Resolve 按邀请码获取邀请页
// GET /api/v1/rsvp/:code
func (h *InvitationHandler) Resolve(c *gin.Context) {
	resp, err := h.svc.GetInvitationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		handleInvitationError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	response.OK(c, resp)
}

// MarkViewed 访客打开邀请页
// POST /api/v1/rsvp/:code/viewed
func (h *InvitationHandler) MarkViewed(c *gin.Context) {
	if err := h.svc.MarkViewed(c.Request.Context(), c.Param("code")); err != nil {
		handleInvitationError(c, err)
		return
	}
	response.OK(c, nil)
}

// Calendar 受邀活动的日历文件
// GET /api/v1/rsvp/:code/calendar.ics
func (h *InvitationHandler) Calendar(c *gin.Context) {
	body, err := h.calendarSvc.InvitationICS(c.Request.Context(), c.Param("code"))
	if err != nil {
		handleInvitationError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="wedding.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

func writeBatchResult(c *gin.Context, resp *dto.CreateInvitationsResponse) {
	if resp.Succeeded > 0 {
		response.Created(c, resp)
		return
	}
	response.OK(c, resp)
}

func handleInvitationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvitationNotFound),
		errors.Is(err, service.ErrInvalidInvitation),
		errors.Is(err, service.ErrInvitationIDNotFound):
		response.NotFound(c, 22001, invitationNotFoundMessage)
	case errors.Is(err, service.ErrCodeGenerationExhausted):
		response.ServiceUnavailable(c, 22002, err.Error())
	case errors.Is(err, service.ErrWeddingGuestCapExceeded):
		response.Unprocessable(c, 22003, err.Error())
	case errors.Is(err, service.ErrBatchTooLarge):
		response.BadRequest(c, 22004, err.Error())
	case errors.Is(err, service.ErrWeddingNotFound):
		response.NotFound(c, 20001, err.Error())
	default:
		writeCommonError(c, err)
	}
}
