package handler

import "wedly/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Wedding    *WeddingHandler
	Session    *SessionHandler
	Invitation *InvitationHandler
	RSVP       *RSVPHandler
	Question   *QuestionHandler
	Dashboard  *DashboardHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Wedding:    NewWeddingHandler(svc.Wedding),
		Session:    NewSessionHandler(svc.Session),
		Invitation: NewInvitationHandler(svc.Invitation, svc.Calendar),
		RSVP:       NewRSVPHandler(svc.RSVP),
		Question:   NewQuestionHandler(svc.Question),
		Dashboard:  NewDashboardHandler(svc.Dashboard),
		Export:     NewExportHandler(svc.Export),
	}
}
