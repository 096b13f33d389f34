package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wedly/backend/config"
	"wedly/backend/internal/dto"
	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
	pkgerrors "wedly/backend/pkg/errors"
	"wedly/backend/pkg/logger"
	"wedly/backend/pkg/metrics"
	"wedly/backend/pkg/qrcode"
)

// ── 邀请模块业务错误 ──

var (
	ErrCodeGenerationExhausted = errors.New("邀请码生成失败，请稍后重试")
	ErrWeddingGuestCapExceeded = errors.New("超出婚礼宾客总数上限")
	ErrBatchTooLarge           = errors.New("单次创建的邀请数量超出上限")
	ErrInvitationIDNotFound    = errors.New("邀请不存在")
)

// 批量结果中的条目错误码
const (
	itemErrValidation = 10001
	itemErrExhausted  = 22002
	itemErrGuestCap   = 22003
	itemErrInternal   = 50000
)

// InvitationService 邀请业务接口
type InvitationService interface {
	CreateInvitations(ctx context.Context, weddingID string, guests []dto.GuestEntry) (*dto.CreateInvitationsResponse, error)
	GetInvitationByCode(ctx context.Context, code string) (*dto.ResolvedInvitationResponse, error)
	MarkViewed(ctx context.Context, code string) error
	List(ctx context.Context, weddingID string, req *dto.InvitationListRequest) ([]dto.InvitationResponse, int64, error)
	Get(ctx context.Context, weddingID, id string) (*dto.InvitationResponse, error)
	Update(ctx context.Context, weddingID, id string, req *dto.UpdateInvitationRequest) (*dto.InvitationResponse, error)
	ParseGuestListFile(reader io.Reader) ([]dto.GuestEntry, error)
	QRCode(ctx context.Context, weddingID, id string, size int) ([]byte, string, error)
}

type invitationService struct {
	repo     *repository.Repository
	cfg      *config.RSVPConfig
	codes    CodeSource
	links    *linkBuilder
	resolver *codeResolver
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewInvitationService 创建 InvitationService 实例
func NewInvitationService(
	repo *repository.Repository,
	cfg *config.RSVPConfig,
	codes CodeSource,
	links *linkBuilder,
	resolver *codeResolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) InvitationService {
	return &invitationService{
		repo:     repo,
		cfg:      cfg,
		codes:    codes,
		links:    links,
		resolver: resolver,
		metrics:  m,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── CreateInvitations ──────────────────────

// CreateInvitations 逐条处理，单条失败不影响其余条目
func (s *invitationService) CreateInvitations(ctx context.Context, weddingID string, guests []dto.GuestEntry) (*dto.CreateInvitationsResponse, error) {
	if len(guests) > s.cfg.MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	w, err := s.repo.Wedding.GetByID(ctx, weddingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeddingNotFound
		}
		s.logger.Error("查询婚礼失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}

	events, err := s.repo.Event.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	eventIDs := make(map[string]struct{}, len(events))
	for _, e := range events {
		eventIDs[e.EventID] = struct{}{}
	}

	// 名额上限为软约束：并发批次之间不加锁
	allocated := 0
	if w.MaxGuests != nil {
		allocated, err = s.repo.Invitation.SumMaxGuests(ctx, weddingID)
		if err != nil {
			s.logger.Error("统计已分配名额失败", zap.String("wedding_id", weddingID), zap.Error(err))
			return nil, err
		}
	}

	resp := &dto.CreateInvitationsResponse{
		Total:   len(guests),
		Results: make([]dto.InvitationResult, 0, len(guests)),
	}

	for i := range guests {
		entry := &guests[i]
		result := dto.InvitationResult{Index: i, GuestName: entry.GuestName}

		if ve := s.validateEntry(entry, eventIDs); ve.HasErrors() {
			result.ErrorCode = itemErrValidation
			result.Error = "参数校验失败"
			for _, fe := range ve.Fields() {
				result.FieldErrors = append(result.FieldErrors, dto.FieldErrorPayload{Field: fe.Field, Message: fe.Message})
			}
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}

		if w.MaxGuests != nil && allocated+entry.MaxGuests > *w.MaxGuests {
			result.ErrorCode = itemErrGuestCap
			result.Error = fmt.Sprintf("%s（剩余 %d 个名额）", ErrWeddingGuestCapExceeded.Error(), *w.MaxGuests-allocated)
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}

		inv := &model.Invitation{
			WeddingID:       weddingID,
			GuestName:       strings.TrimSpace(entry.GuestName),
			GuestEmail:      strings.TrimSpace(entry.GuestEmail),
			MaxGuests:       entry.MaxGuests,
			AllowPlusOne:    entry.AllowPlusOne,
			InvitedEventIDs: dedupe(entry.InvitedEventIDs),
			IsFamily:        entry.IsFamily,
			Status:          model.InvitationStatusSent,
		}

		if err := s.issue(ctx, inv); err != nil {
			if errors.Is(err, ErrCodeGenerationExhausted) {
				result.ErrorCode = itemErrExhausted
				result.Error = ErrCodeGenerationExhausted.Error()
			} else {
				s.logger.Error("创建邀请失败", zap.String("wedding_id", weddingID), zap.Int("index", i), zap.Error(err))
				result.ErrorCode = itemErrInternal
				result.Error = "服务器内部错误"
			}
			resp.Failed++
			resp.Results = append(resp.Results, result)
			continue
		}

		allocated += inv.MaxGuests
		result.Success = true
		result.InvitationID = inv.InvitationID
		result.Code = inv.Code
		result.RSVPLink = s.links.RSVPPath(inv.Code)
		result.QRTargetURL = s.links.RSVPURL(inv.Code)
		resp.Succeeded++
		resp.Results = append(resp.Results, result)
	}

	s.metrics.InvitationsCreated(resp.Succeeded)
	s.logger.Info("批量创建邀请完成",
		zap.String("wedding_id", weddingID),
		zap.Int("total", resp.Total),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// issue 查重 + 插入，冲突（含唯一约束竞态）时换码重试，超过上限返回 ErrCodeGenerationExhausted
func (s *invitationService) issue(ctx context.Context, inv *model.Invitation) error {
	for attempt := 1; attempt <= s.cfg.CodeMaxAttempts; attempt++ {
		code, err := s.codes.NewCode()
		if err != nil {
			return err
		}

		exists, err := s.repo.Invitation.ExistsByCode(ctx, code)
		if err != nil {
			return err
		}
		if exists {
			s.logger.Debug("邀请码冲突，重试", zap.Int("attempt", attempt))
			continue
		}

		inv.Code = code
		err = s.repo.Invitation.Create(ctx, inv)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Debug("邀请码插入冲突，重试", zap.Int("attempt", attempt))
			inv.Code = ""
			continue
		}
		return err
	}

	s.metrics.CodeGenerationExhausted()
	s.logger.Error("邀请码生成重试耗尽",
		zap.String("wedding_id", inv.WeddingID),
		zap.Int("attempts", s.cfg.CodeMaxAttempts),
	)
	return ErrCodeGenerationExhausted
}

func (s *invitationService) validateEntry(entry *dto.GuestEntry, eventIDs map[string]struct{}) *pkgerrors.ValidationError {
	ve := &pkgerrors.ValidationError{}
	name := strings.TrimSpace(entry.GuestName)
	if name == "" {
		ve.Add("guest_name", "宾客姓名不能为空")
	} else if len([]rune(name)) > 100 {
		ve.Add("guest_name", "宾客姓名不能超过 100 个字符")
	}
	if email := strings.TrimSpace(entry.GuestEmail); email != "" {
		if err := s.validate.Var(email, "email,max=255"); err != nil {
			ve.Add("guest_email", "邮箱格式不正确")
		}
	}
	if entry.MaxGuests < 1 {
		ve.Add("max_guests", "最大人数至少为 1")
	}
	for _, id := range entry.InvitedEventIDs {
		if _, ok := eventIDs[id]; !ok {
			ve.Add("invited_event_ids", "活动 %s 不属于该婚礼", id)
		}
	}
	return ve
}

// ────────────────────── GetInvitationByCode ──────────────────────

func (s *invitationService) GetInvitationByCode(ctx context.Context, code string) (*dto.ResolvedInvitationResponse, error) {
	resolved, err := s.resolver.resolve(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrInvitationNotFound) {
			s.logger.Error("解析邀请码失败", zap.String("code", logger.MaskCode(NormalizeCode(code))), zap.Error(err))
		}
		return nil, err
	}

	questions, err := s.repo.Question.ListByWedding(ctx, resolved.Wedding.WeddingID)
	if err != nil {
		s.logger.Error("查询问题失败", zap.String("wedding_id", resolved.Wedding.WeddingID), zap.Error(err))
		return nil, err
	}

	inv := resolved.Invitation
	resp := &dto.ResolvedInvitationResponse{
		GuestName:    inv.GuestName,
		MaxGuests:    inv.MaxGuests,
		AllowPlusOne: inv.AllowPlusOne,
		IsFamily:     inv.IsFamily,
		Status:       inv.Status,
		Wedding:      toWeddingSummary(resolved.Wedding),
		Events:       make([]dto.EventResponse, 0, len(resolved.Events)),
		Questions:    []dto.QuestionResponse{},
	}
	for i := range resolved.Events {
		resp.Events = append(resp.Events, toEventResponse(&resolved.Events[i]))
	}

	invited := resolved.invitedSet()
	for i := range questions {
		if questionApplies(&questions[i], invited) {
			resp.Questions = append(resp.Questions, toQuestionResponse(&questions[i]))
		}
	}

	existing, err := s.repo.RSVP.GetByInvitation(ctx, inv.InvitationID)
	switch {
	case err == nil:
		r := toRSVPResponse(existing)
		resp.ExistingRSVP = &r
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询已有回复失败", zap.String("invitation_id", inv.InvitationID), zap.Error(err))
		return nil, err
	}

	return resp, nil
}

// ────────────────────── MarkViewed ──────────────────────

// MarkViewed sent → viewed；已查看或已回复为空操作
func (s *invitationService) MarkViewed(ctx context.Context, code string) error {
	// 格式错误的邀请码走与未知邀请码相同的两次查询
	normalized := NormalizeCode(code)
	wellFormed := isWellFormedCode(normalized)
	if !wellFormed {
		normalized = "-"
	}

	changed, err := s.repo.Invitation.MarkViewed(ctx, normalized, s.now())
	if err != nil {
		s.logger.Error("更新查看状态失败", zap.String("code", logger.MaskCode(normalized)), zap.Error(err))
		return err
	}
	if changed {
		return nil
	}

	// 未发生变化：区分"已查看/已回复"与"邀请码不存在"
	exists, err := s.repo.Invitation.ExistsByCode(ctx, normalized)
	if err != nil {
		s.logger.Error("查询邀请码失败", zap.String("code", logger.MaskCode(normalized)), zap.Error(err))
		return err
	}
	if !exists || !wellFormed {
		return ErrInvitationNotFound
	}
	return nil
}

// ────────────────────── List / Get ──────────────────────

func (s *invitationService) List(ctx context.Context, weddingID string, req *dto.InvitationListRequest) ([]dto.InvitationResponse, int64, error) {
	filter := repository.InvitationFilter{Status: req.Status, Keyword: strings.TrimSpace(req.Keyword)}
	invitations, total, err := s.repo.Invitation.List(ctx, weddingID, filter, pageOffset(req.Page, req.PageSize), req.PageSize)
	if err != nil {
		s.logger.Error("列出邀请失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.InvitationResponse, 0, len(invitations))
	for i := range invitations {
		result = append(result, s.toInvitationResponse(&invitations[i]))
	}
	return result, total, nil
}

func (s *invitationService) Get(ctx context.Context, weddingID, id string) (*dto.InvitationResponse, error) {
	inv, err := s.getInvitation(ctx, weddingID, id)
	if err != nil {
		return nil, err
	}
	resp := s.toInvitationResponse(inv)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

// Update 邀请码不可修改；调低人数上限不会影响已提交的回复
func (s *invitationService) Update(ctx context.Context, weddingID, id string, req *dto.UpdateInvitationRequest) (*dto.InvitationResponse, error) {
	inv, err := s.getInvitation(ctx, weddingID, id)
	if err != nil {
		return nil, err
	}

	entry := dto.GuestEntry{
		GuestName:       inv.GuestName,
		GuestEmail:      inv.GuestEmail,
		MaxGuests:       inv.MaxGuests,
		AllowPlusOne:    inv.AllowPlusOne,
		InvitedEventIDs: inv.InvitedEventIDs,
		IsFamily:        inv.IsFamily,
	}
	if req.GuestName != nil {
		entry.GuestName = *req.GuestName
	}
	if req.GuestEmail != nil {
		entry.GuestEmail = *req.GuestEmail
	}
	if req.MaxGuests != nil {
		entry.MaxGuests = *req.MaxGuests
	}
	if req.AllowPlusOne != nil {
		entry.AllowPlusOne = *req.AllowPlusOne
	}
	if req.InvitedEventIDs != nil {
		entry.InvitedEventIDs = dedupe(*req.InvitedEventIDs)
	}
	if req.IsFamily != nil {
		entry.IsFamily = *req.IsFamily
	}

	events, err := s.repo.Event.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	eventIDs := make(map[string]struct{}, len(events))
	for _, e := range events {
		eventIDs[e.EventID] = struct{}{}
	}
	if ve := s.validateEntry(&entry, eventIDs); ve.HasErrors() {
		return nil, ve
	}

	if entry.MaxGuests > inv.MaxGuests {
		if err := s.checkGuestCap(ctx, weddingID, entry.MaxGuests-inv.MaxGuests); err != nil {
			return nil, err
		}
	}

	inv.GuestName = strings.TrimSpace(entry.GuestName)
	inv.GuestEmail = strings.TrimSpace(entry.GuestEmail)
	inv.MaxGuests = entry.MaxGuests
	inv.AllowPlusOne = entry.AllowPlusOne
	inv.InvitedEventIDs = entry.InvitedEventIDs
	inv.IsFamily = entry.IsFamily

	if err := s.repo.Invitation.Update(ctx, inv); err != nil {
		s.logger.Error("更新邀请失败", zap.String("invitation_id", id), zap.Error(err))
		return nil, err
	}

	resp := s.toInvitationResponse(inv)
	return &resp, nil
}

func (s *invitationService) checkGuestCap(ctx context.Context, weddingID string, extra int) error {
	w, err := s.repo.Wedding.GetByID(ctx, weddingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWeddingNotFound
		}
		return err
	}
	if w.MaxGuests == nil {
		return nil
	}
	allocated, err := s.repo.Invitation.SumMaxGuests(ctx, weddingID)
	if err != nil {
		s.logger.Error("统计已分配名额失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return err
	}
	if allocated+extra > *w.MaxGuests {
		return ErrWeddingGuestCapExceeded
	}
	return nil
}

// ────────────────────── QRCode ──────────────────────

func (s *invitationService) QRCode(ctx context.Context, weddingID, id string, size int) ([]byte, string, error) {
	inv, err := s.getInvitation(ctx, weddingID, id)
	if err != nil {
		return nil, "", err
	}
	png, err := qrcode.PNG(s.links.RSVPURL(inv.Code), size)
	if err != nil {
		s.logger.Error("生成二维码失败", zap.String("invitation_id", id), zap.Error(err))
		return nil, "", err
	}
	return png, inv.Code, nil
}

// ────────────────────── ParseGuestListFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名）")
)

// ParseGuestListFile 解析宾客名单 Excel；结果交由 CreateInvitations 逐条校验
// 表头（中英文均可）：姓名/name、邮箱/email、人数/max_guests、携伴/plus_one、家庭/family、活动/events
// 活动列为以逗号分隔的活动 ID
func (s *invitationService) ParseGuestListFile(reader io.Reader) ([]dto.GuestEntry, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseGuestHeaderIndex(excelRows[0])
	if colIndex["name"] < 0 {
		return nil, ErrImportBadHeader
	}

	cellAt := func(row []string, key string) string {
		idx := colIndex[key]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var entries []dto.GuestEntry
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		entry := dto.GuestEntry{
			GuestName:    cellAt(row, "name"),
			GuestEmail:   cellAt(row, "email"),
			MaxGuests:    1,
			AllowPlusOne: parseBoolCell(cellAt(row, "plus_one")),
			IsFamily:     parseBoolCell(cellAt(row, "family")),
		}
		if raw := cellAt(row, "max_guests"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				n = 0 // 交给条目校验报告
			}
			entry.MaxGuests = n
		}
		if raw := cellAt(row, "events"); raw != "" {
			for _, id := range strings.Split(raw, ",") {
				if id = strings.TrimSpace(id); id != "" {
					entry.InvitedEventIDs = append(entry.InvitedEventIDs, id)
				}
			}
		}

		// 跳过全空行
		if entry.GuestName == "" && entry.GuestEmail == "" {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrImportNoData
	}
	if len(entries) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return entries, nil
}

// parseGuestHeaderIndex 解析表头，返回列名 -> 列索引映射
func parseGuestHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"name":       -1,
		"email":      -1,
		"max_guests": -1,
		"plus_one":   -1,
		"family":     -1,
		"events":     -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch lower {
		case "姓名", "name", "guest_name":
			idx["name"] = i
		case "邮箱", "email", "guest_email":
			idx["email"] = i
		case "人数", "max_guests", "party_size":
			idx["max_guests"] = i
		case "携伴", "plus_one", "allow_plus_one":
			idx["plus_one"] = i
		case "家庭", "family", "is_family":
			idx["family"] = i
		case "活动", "events", "invited_event_ids":
			idx["events"] = i
		}
	}
	return idx
}

func parseBoolCell(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "是", "√":
		return true
	}
	return false
}

// ── 辅助函数 ──

func (s *invitationService) getInvitation(ctx context.Context, weddingID, id string) (*model.Invitation, error) {
	inv, err := s.repo.Invitation.GetByID(ctx, weddingID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationIDNotFound
		}
		s.logger.Error("查询邀请失败", zap.String("invitation_id", id), zap.Error(err))
		return nil, err
	}
	return inv, nil
}

func (s *invitationService) toInvitationResponse(inv *model.Invitation) dto.InvitationResponse {
	ids := []string(inv.InvitedEventIDs)
	if ids == nil {
		ids = []string{}
	}
	return dto.InvitationResponse{
		InvitationID:    inv.InvitationID,
		GuestName:       inv.GuestName,
		GuestEmail:      inv.GuestEmail,
		Code:            inv.Code,
		RSVPLink:        s.links.RSVPPath(inv.Code),
		QRTargetURL:     s.links.RSVPURL(inv.Code),
		MaxGuests:       inv.MaxGuests,
		AllowPlusOne:    inv.AllowPlusOne,
		InvitedEventIDs: ids,
		IsFamily:        inv.IsFamily,
		Status:          inv.Status,
		ViewedAt:        formatTimePtr(inv.ViewedAt),
		RespondedAt:     formatTimePtr(inv.RespondedAt),
		CreatedAt:       formatTime(inv.CreatedAt),
	}
}

// dedupe 保持原顺序去重
func dedupe(ids []string) model.StringArray {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make(model.StringArray, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
