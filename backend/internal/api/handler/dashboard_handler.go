package handler

import (
	"github.com/gin-gonic/gin"

	"wedly/backend/internal/service"
	"wedly/backend/pkg/response"
)

// DashboardHandler 回复统计看板
type DashboardHandler struct {
	svc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Get GET /api/v1/manage/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	resp, err := h.svc.Get(c.Request.Context(), weddingID)
	if err != nil {
		handleWeddingError(c, err)
		return
	}
	response.OK(c, resp)
}
