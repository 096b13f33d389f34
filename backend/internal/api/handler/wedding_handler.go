package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/service"
	"wedly/backend/pkg/response"
)

// HeaderWeddingPassword 公开婚礼页访问密码请求头
const HeaderWeddingPassword = "X-Wedding-Password"

// WeddingHandler 婚礼与子活动模块 HTTP 处理器
type WeddingHandler struct {
	svc service.WeddingService
}

// NewWeddingHandler 创建 WeddingHandler
func NewWeddingHandler(svc service.WeddingService) *WeddingHandler {
	return &WeddingHandler{svc: svc}
}

// Create 创建婚礼，返回管理链接
// POST /api/v1/weddings
func (h *WeddingHandler) Create(c *gin.Context) {
	var req dto.CreateWeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.Created(c, resp)
}

// GetPublic 公开婚礼页
// GET /api/v1/weddings/:slug
func (h *WeddingHandler) GetPublic(c *gin.Context) {
	password := c.GetHeader(HeaderWeddingPassword)
	if password == "" {
		password = c.Query("password")
	}

	resp, err := h.svc.GetPublic(c.Request.Context(), c.Param("slug"), password)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, resp)
}

// Get 主人查看婚礼详情
// GET /api/v1/manage/wedding
func (h *WeddingHandler) Get(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	resp, err := h.svc.GetForOwner(c.Request.Context(), weddingID)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, resp)
}

// Update 修改婚礼信息（需携带 version）
// PUT /api/v1/manage/wedding
func (h *WeddingHandler) Update(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	var req dto.UpdateWeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), weddingID, &req)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, resp)
}

// RotateSecret 轮换管理密钥，旧链接与旧会话立即失效
// POST /api/v1/manage/wedding/rotate-secret
func (h *WeddingHandler) RotateSecret(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	resp, err := h.svc.RotateSecret(c.Request.Context(), weddingID)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, resp)
}

// ListEvents 子活动列表
// GET /api/v1/manage/events
func (h *WeddingHandler) ListEvents(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	list, err := h.svc.ListEvents(c.Request.Context(), weddingID)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, list)
}

// AddEvent 新增子活动
// POST /api/v1/manage/events
func (h *WeddingHandler) AddEvent(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.AddEvent(c.Request.Context(), weddingID, &req)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.Created(c, resp)
}

// UpdateEvent 修改子活动
// PUT /api/v1/manage/events/:id
func (h *WeddingHandler) UpdateEvent(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, service.ErrEventNotFound, handleWeddingError)
	if !ok {
		return
	}

	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.UpdateEvent(c.Request.Context(), weddingID, id, &req)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, resp)
}

// RemoveEvent 删除子活动
// DELETE /api/v1/manage/events/:id
func (h *WeddingHandler) RemoveEvent(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, service.ErrEventNotFound, handleWeddingError)
	if !ok {
		return
	}

	if err := h.svc.RemoveEvent(c.Request.Context(), weddingID, id); err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, nil)
}

// ImportEvents 从日历导入子活动
// POST /api/v1/manage/events/import
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - 订阅地址: application/json, body={"url": "webcal://..."}
func (h *WeddingHandler) ImportEvents(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	var reader io.Reader
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		reader = file
	} else {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingFile) {
			var req dto.ImportEventsRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				writeBindError(c, err)
				return
			}
			body, err := service.FetchICSContent(req.URL)
			if err != nil {
				response.ErrorWithDetails(c, http.StatusBadRequest, 21002, "日历地址获取失败", err.Error())
				return
			}
			defer body.Close()
			reader = body
		} else {
			writeBindError(c, err)
			return
		}
	}

	resp, err := h.svc.ImportEventsFromICS(c.Request.Context(), weddingID, reader)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.Created(c, resp)
}

func handleWeddingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWeddingNotFound):
		response.NotFound(c, 20001, err.Error())
	case errors.Is(err, service.ErrWeddingPasswordRequired):
		response.Unauthorized(c, 20002, err.Error())
	case errors.Is(err, service.ErrWeddingPasswordInvalid):
		response.Forbidden(c, 20003, err.Error())
	case errors.Is(err, service.ErrSlugTaken):
		response.Conflict(c, 20005, err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 21001, err.Error())
	default:
		writeCommonError(c, err)
	}
}
