package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/service"
	"wedly/backend/pkg/response"
)

// QuestionHandler 自定义问题模块 HTTP 处理器
type QuestionHandler struct {
	svc service.QuestionService
}

// NewQuestionHandler 创建 QuestionHandler
func NewQuestionHandler(svc service.QuestionService) *QuestionHandler {
	return &QuestionHandler{svc: svc}
}

// List GET /api/v1/manage/questions
func (h *QuestionHandler) List(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	list, err := h.svc.List(c.Request.Context(), weddingID)
	if err != nil {
		handleQuestionError(c, err)
		return
	}
	response.OK(c, list)
}

// Create POST /api/v1/manage/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}

	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), weddingID, &req)
	if err != nil {
		handleQuestionError(c, err)
		return
	}
	response.Created(c, resp)
}

// Update PUT /api/v1/manage/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, service.ErrQuestionNotFound, handleQuestionError)
	if !ok {
		return
	}

	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), weddingID, id, &req)
	if err != nil {
		handleQuestionError(c, err)
		return
	}
	response.OK(c, resp)
}

// Delete DELETE /api/v1/manage/questions/:id
func (h *QuestionHandler) Delete(c *gin.Context) {
	weddingID, ok := MustGetWeddingID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, service.ErrQuestionNotFound, handleQuestionError)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), weddingID, id); err != nil {
		handleQuestionError(c, err)
		return
	}
	response.OK(c, nil)
}

func handleQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		response.NotFound(c, 24001, err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 21001, err.Error())
	default:
		writeCommonError(c, err)
	}
}
