package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"wedly/backend/internal/dto"
	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
	pkgerrors "wedly/backend/pkg/errors"
	"wedly/backend/pkg/i18n"
	"wedly/backend/pkg/logger"
	"wedly/backend/pkg/metrics"
)

// ── RSVP 模块业务错误 ──

var (
	ErrInvalidInvitation     = errors.New("邀请无效")
	ErrGuestLimitExceeded    = errors.New("出席人数超出邀请上限")
	ErrUnauthorizedEvent     = errors.New("不能回复未受邀的活动")
	ErrMissingRequiredAnswer = errors.New("必答问题未作答")
)

// RSVPService RSVP 业务接口
type RSVPService interface {
	Submit(ctx context.Context, code string, req *dto.SubmitRSVPRequest, locale string) (*dto.SubmitRSVPResponse, error)
	List(ctx context.Context, weddingID string, req *dto.RSVPListRequest) ([]dto.RSVPResponse, int64, error)
}

type rsvpService struct {
	repo       *repository.Repository
	resolver   *codeResolver
	translator *i18n.Translator
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewRSVPService 创建 RSVPService 实例
func NewRSVPService(
	repo *repository.Repository,
	resolver *codeResolver,
	translator *i18n.Translator,
	m *metrics.Metrics,
	logger *zap.Logger,
) RSVPService {
	return &rsvpService{
		repo:       repo,
		resolver:   resolver,
		translator: translator,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// ═══════════════════════════════════════════════════════════
// Submit 提交或覆盖 RSVP
// ═══════════════════════════════════════════════════════════
//
// 校验顺序：邀请有效 → 人数 → 活动授权 → 携伴 → 自定义问题。
// 任一校验失败均不产生写入。持久化在单个事务内完成：
// 以 invitation_id 唯一约束 upsert RSVP，覆盖回答，标记邀请为已回复。

func (s *rsvpService) Submit(ctx context.Context, code string, req *dto.SubmitRSVPRequest, locale string) (*dto.SubmitRSVPResponse, error) {
	resolved, err := s.resolver.resolve(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvitationNotFound) {
			s.metrics.RSVPSubmitted(metrics.ResultRejected)
			return nil, ErrInvalidInvitation
		}
		s.logger.Error("解析邀请码失败", zap.String("code", logger.MaskCode(NormalizeCode(code))), zap.Error(err))
		return nil, err
	}

	rsvp, responses, err := s.validate(ctx, resolved, req)
	if err != nil {
		s.metrics.RSVPSubmitted(metrics.ResultRejected)
		return nil, err
	}

	updated, err := s.persist(ctx, resolved.Invitation, rsvp, responses)
	if err != nil {
		return nil, err
	}

	if updated {
		s.metrics.RSVPSubmitted(metrics.ResultUpdated)
	} else {
		s.metrics.RSVPSubmitted(metrics.ResultCreated)
	}
	s.logger.Info("RSVP 已记录",
		zap.String("wedding_id", resolved.Wedding.WeddingID),
		zap.String("rsvp_id", rsvp.RSVPID),
		zap.Bool("updated", updated),
		zap.Int("guests", rsvp.NumberOfGuests),
		zap.Int("events", len(rsvp.AttendingEventIDs)),
	)

	return &dto.SubmitRSVPResponse{
		RSVPID:    rsvp.RSVPID,
		Updated:   updated,
		Attending: rsvp.IsAttending(),
		Message:   s.confirmation(locale, resolved.Wedding, rsvp, updated),
	}, nil
}

// validate 构造待写入的 RSVP 与回答；不触碰存储的写路径
func (s *rsvpService) validate(ctx context.Context, resolved *resolvedInvitation, req *dto.SubmitRSVPRequest) (*model.RSVP, []model.RSVPResponse, error) {
	inv := resolved.Invitation

	if resolved.Wedding.Status == model.WeddingStatusArchived {
		return nil, nil, ErrWeddingArchived
	}

	if req.NumberOfGuests < 1 || req.NumberOfGuests > inv.MaxGuests {
		return nil, nil, fmt.Errorf("%w: 允许 1-%d 人，提交 %d 人", ErrGuestLimitExceeded, inv.MaxGuests, req.NumberOfGuests)
	}

	invited := resolved.invitedSet()
	attending := dedupe(req.AttendingEventIDs)
	for _, id := range attending {
		if _, ok := invited[id]; !ok {
			return nil, nil, ErrUnauthorizedEvent
		}
	}

	var ve pkgerrors.ValidationError
	guestName := strings.TrimSpace(req.GuestName)
	if guestName == "" {
		ve.Add("guest_name", "姓名不能为空")
	}
	plusOne := strings.TrimSpace(req.PlusOneName)
	if plusOne != "" && !inv.AllowPlusOne {
		ve.Add("plus_one_name", "该邀请不允许携伴")
	}

	questions, err := s.repo.Question.ListByWedding(ctx, resolved.Wedding.WeddingID)
	if err != nil {
		s.logger.Error("查询问题失败", zap.String("wedding_id", resolved.Wedding.WeddingID), zap.Error(err))
		return nil, nil, err
	}
	byID := make(map[string]*model.RSVPQuestion, len(questions))
	for i := range questions {
		byID[questions[i].QuestionID] = &questions[i]
	}

	attendingSet := attending.Set()
	answered := make(map[string]struct{}, len(req.Answers))
	responses := make([]model.RSVPResponse, 0, len(req.Answers))
	for i := range req.Answers {
		a := &req.Answers[i]
		field := fmt.Sprintf("answers[%d]", i)

		q, ok := byID[a.QuestionID]
		if !ok {
			ve.Add(field+".question_id", "问题不存在")
			continue
		}
		if _, dup := answered[a.QuestionID]; dup {
			ve.Add(field+".question_id", "同一问题只能回答一次")
			continue
		}
		answered[a.QuestionID] = struct{}{}

		value, ok := validateAnswer(q, a, field, &ve)
		if !ok {
			continue
		}
		responses = append(responses, model.RSVPResponse{
			QuestionID: q.QuestionID,
			AnswerType: q.AnswerType,
			Value:      datatypes.NewJSONType(value),
			NonBinding: !questionBinds(q, attendingSet),
		})
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, nil, err
	}

	for i := range questions {
		q := &questions[i]
		if !q.Required || !questionBinds(q, attendingSet) {
			continue
		}
		if _, ok := answered[q.QuestionID]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingRequiredAnswer, q.Text)
		}
	}

	now := s.now()
	rsvp := &model.RSVP{
		InvitationID:      inv.InvitationID,
		WeddingID:         inv.WeddingID,
		GuestName:         guestName,
		GuestEmail:        strings.TrimSpace(req.GuestEmail),
		GuestPhone:        strings.TrimSpace(req.GuestPhone),
		AttendingEventIDs: attending,
		NumberOfGuests:    req.NumberOfGuests,
		PlusOneName:       plusOne,
		DietaryNotes:      strings.TrimSpace(req.DietaryNotes),
		Message:           strings.TrimSpace(req.Message),
		SubmittedAt:       now,
	}
	rsvp.UpdatedAt = now
	return rsvp, responses, nil
}

// persist 事务内 upsert + 覆盖回答 + 标记已回复；返回是否覆盖了已有回复
func (s *rsvpService) persist(ctx context.Context, inv *model.Invitation, rsvp *model.RSVP, responses []model.RSVPResponse) (bool, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return false, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	txRepo := s.repo.WithTx(tx)

	inserted, err := txRepo.RSVP.Upsert(ctx, rsvp)
	if err != nil {
		rollback()
		s.logger.Error("写入 RSVP 失败", zap.String("invitation_id", inv.InvitationID), zap.Error(err))
		return false, err
	}

	if err := txRepo.Response.ReplaceForRSVP(ctx, rsvp.RSVPID, responses); err != nil {
		rollback()
		s.logger.Error("写入回答失败", zap.String("rsvp_id", rsvp.RSVPID), zap.Error(err))
		return false, err
	}

	if err := txRepo.Invitation.MarkResponded(ctx, inv.InvitationID, rsvp.SubmittedAt); err != nil {
		rollback()
		s.logger.Error("更新邀请状态失败", zap.String("invitation_id", inv.InvitationID), zap.Error(err))
		return false, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return false, err
		}
	}
	rsvp.Responses = responses
	return !inserted, nil
}

func (s *rsvpService) confirmation(locale string, w *model.Wedding, rsvp *model.RSVP, updated bool) string {
	if s.translator == nil {
		return "success"
	}
	key := i18n.MsgRSVPConfirmedDeclined
	switch {
	case updated:
		key = i18n.MsgRSVPUpdated
	case rsvp.IsAttending():
		key = i18n.MsgRSVPConfirmedAttending
	}
	return s.translator.T(locale, key, map[string]any{
		"GuestName": rsvp.GuestName,
		"Couple":    w.CoupleNames(),
	})
}

// ────────────────────── List ──────────────────────

func (s *rsvpService) List(ctx context.Context, weddingID string, req *dto.RSVPListRequest) ([]dto.RSVPResponse, int64, error) {
	rsvps, total, err := s.repo.RSVP.List(ctx, weddingID, req.Attending, pageOffset(req.Page, req.PageSize), req.PageSize)
	if err != nil {
		s.logger.Error("列出 RSVP 失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.RSVPResponse, 0, len(rsvps))
	for i := range rsvps {
		result = append(result, toRSVPResponse(&rsvps[i]))
	}
	return result, total, nil
}

func toRSVPResponse(r *model.RSVP) dto.RSVPResponse {
	attending := []string(r.AttendingEventIDs)
	if attending == nil {
		attending = []string{}
	}
	resp := dto.RSVPResponse{
		RSVPID:            r.RSVPID,
		InvitationID:      r.InvitationID,
		GuestName:         r.GuestName,
		GuestEmail:        r.GuestEmail,
		GuestPhone:        r.GuestPhone,
		AttendingEventIDs: attending,
		NumberOfGuests:    r.NumberOfGuests,
		PlusOneName:       r.PlusOneName,
		DietaryNotes:      r.DietaryNotes,
		Message:           r.Message,
		SubmittedAt:       formatTime(r.SubmittedAt),
		Answers:           make([]dto.AnswerResponse, 0, len(r.Responses)),
	}
	for _, res := range r.Responses {
		v := res.Value.Data()
		resp.Answers = append(resp.Answers, dto.AnswerResponse{
			QuestionID: res.QuestionID,
			AnswerType: res.AnswerType,
			Text:       v.Text,
			Choices:    v.Choices,
			NonBinding: res.NonBinding,
		})
	}
	return resp
}
