package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"wedly/backend/config"
	"wedly/backend/internal/dto"
	"wedly/backend/internal/model"
	"wedly/backend/internal/repository"
	pkgerrors "wedly/backend/pkg/errors"
)

// ── 婚礼模块业务错误 ──

var (
	ErrWeddingNotFound         = errors.New("婚礼不存在")
	ErrWeddingPasswordRequired = errors.New("该婚礼页面需要访问密码")
	ErrWeddingPasswordInvalid  = errors.New("访问密码错误")
	ErrWeddingArchived         = errors.New("婚礼已归档，不再接受回复")
	ErrSlugTaken               = errors.New("该婚礼地址已被占用")
	ErrEventNotFound           = errors.New("活动不存在")
)

const (
	dateLayout      = "2006-01-02"
	clockLayout     = "15:04"
	secretByteLen   = 32
	slugMaxAttempts = 5
)

// WeddingService 婚礼与子活动业务接口
type WeddingService interface {
	Create(ctx context.Context, req *dto.CreateWeddingRequest) (*dto.CreateWeddingResponse, error)
	GetForOwner(ctx context.Context, weddingID string) (*dto.WeddingResponse, error)
	GetPublic(ctx context.Context, slug, password string) (*dto.PublicWeddingResponse, error)
	Update(ctx context.Context, weddingID string, req *dto.UpdateWeddingRequest) (*dto.WeddingResponse, error)
	RotateSecret(ctx context.Context, weddingID string) (*dto.RotateSecretResponse, error)

	AddEvent(ctx context.Context, weddingID string, req *dto.EventRequest) (*dto.EventMutationResponse, error)
	UpdateEvent(ctx context.Context, weddingID, eventID string, req *dto.EventRequest) (*dto.EventMutationResponse, error)
	RemoveEvent(ctx context.Context, weddingID, eventID string) error
	ListEvents(ctx context.Context, weddingID string) ([]dto.EventResponse, error)
	ImportEventsFromICS(ctx context.Context, weddingID string, reader io.Reader) (*dto.ImportEventsResponse, error)
}

type weddingService struct {
	repo   *repository.Repository
	cfg    *config.RSVPConfig
	links  *linkBuilder
	logger *zap.Logger
	now    func() time.Time
}

// NewWeddingService 创建 WeddingService 实例
func NewWeddingService(repo *repository.Repository, cfg *config.RSVPConfig, links *linkBuilder, logger *zap.Logger) WeddingService {
	return &weddingService{repo: repo, cfg: cfg, links: links, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *weddingService) Create(ctx context.Context, req *dto.CreateWeddingRequest) (*dto.CreateWeddingResponse, error) {
	var ve pkgerrors.ValidationError

	date, err := time.Parse(dateLayout, req.WeddingDate)
	if err != nil {
		ve.Add("wedding_date", "日期格式应为 YYYY-MM-DD")
	}
	validateClock(&ve, "ceremony_time", req.CeremonyTime)
	validateClock(&ve, "reception_time", req.ReceptionTime)
	if strings.TrimSpace(req.VenueName) == "" {
		ve.Add("venue_name", "场地名称不能为空")
	}
	if strings.TrimSpace(req.VenueAddress) == "" {
		ve.Add("venue_address", "场地地址不能为空")
	}
	if req.Slug != "" && !isValidSlug(req.Slug) {
		ve.Add("slug", "仅允许小写字母、数字与连字符")
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	secret, err := newSecretToken()
	if err != nil {
		s.logger.Error("生成管理密钥失败", zap.Error(err))
		return nil, err
	}

	slug, err := s.pickSlug(ctx, req, date)
	if err != nil {
		return nil, err
	}

	w := &model.Wedding{
		Slug:           slug,
		PartnerOneName: strings.TrimSpace(req.PartnerOneName),
		PartnerTwoName: strings.TrimSpace(req.PartnerTwoName),
		WeddingDate:    date,
		VenueName:      strings.TrimSpace(req.VenueName),
		VenueAddress:   strings.TrimSpace(req.VenueAddress),
		CeremonyTime:   req.CeremonyTime,
		ReceptionTime:  req.ReceptionTime,
		ContactEmail:   strings.TrimSpace(req.ContactEmail),
		ContactPhone:   strings.TrimSpace(req.ContactPhone),
		SecretToken:    secret,
		SecretIssuedAt: s.now(),
		IsPublic:       req.IsPublic,
		MaxGuests:      req.MaxGuests,
		Status:         model.WeddingStatusActive,
	}

	if req.AccessPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.AccessPassword), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("密码哈希失败", zap.Error(err))
			return nil, err
		}
		w.AccessPasswordHash = string(hash)
	}

	if err := s.repo.Wedding.Create(ctx, w); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrSlugTaken
		}
		s.logger.Error("创建婚礼失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("婚礼已创建", zap.String("wedding_id", w.WeddingID), zap.String("slug", w.Slug))

	return &dto.CreateWeddingResponse{
		WeddingID:   w.WeddingID,
		Slug:        w.Slug,
		AdminLink:   s.links.AdminURL(secret),
		AdminSecret: secret,
	}, nil
}

// pickSlug 用户指定的 slug 冲突即报错；自动生成的 slug 冲突时追加随机后缀
func (s *weddingService) pickSlug(ctx context.Context, req *dto.CreateWeddingRequest, date time.Time) (string, error) {
	if req.Slug != "" {
		exists, err := s.repo.Wedding.SlugExists(ctx, req.Slug)
		if err != nil {
			s.logger.Error("检查 slug 失败", zap.Error(err))
			return "", err
		}
		if exists {
			return "", ErrSlugTaken
		}
		return req.Slug, nil
	}

	base := slugify(req.PartnerOneName, req.PartnerTwoName, date)
	candidate := base
	for attempt := 0; attempt < slugMaxAttempts; attempt++ {
		exists, err := s.repo.Wedding.SlugExists(ctx, candidate)
		if err != nil {
			s.logger.Error("检查 slug 失败", zap.Error(err))
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		suffix, err := (&randomCodeSource{segmentLen: 4, rand: rand.Reader}).segment()
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix
	}
	return "", ErrSlugTaken
}

// ────────────────────── GetForOwner ──────────────────────

func (s *weddingService) GetForOwner(ctx context.Context, weddingID string) (*dto.WeddingResponse, error) {
	w, err := s.getWedding(ctx, weddingID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.Event.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	return toWeddingResponse(w, events), nil
}

// ────────────────────── GetPublic ──────────────────────

// GetPublic 公开婚礼页：非公开婚礼与不存在同样返回 ErrWeddingNotFound
func (s *weddingService) GetPublic(ctx context.Context, slug, password string) (*dto.PublicWeddingResponse, error) {
	w, err := s.repo.Wedding.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeddingNotFound
		}
		s.logger.Error("查询婚礼失败", zap.String("slug", slug), zap.Error(err))
		return nil, err
	}
	if !w.IsPublic {
		return nil, ErrWeddingNotFound
	}
	if w.AccessPasswordHash != "" {
		if password == "" {
			return nil, ErrWeddingPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(w.AccessPasswordHash), []byte(password)); err != nil {
			return nil, ErrWeddingPasswordInvalid
		}
	}

	events, err := s.repo.Event.ListByWedding(ctx, w.WeddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.String("wedding_id", w.WeddingID), zap.Error(err))
		return nil, err
	}

	public := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		if !events[i].IsPrivate {
			public = append(public, toEventResponse(&events[i]))
		}
	}

	return &dto.PublicWeddingResponse{Wedding: toWeddingSummary(w), Events: public}, nil
}

// ────────────────────── Update ──────────────────────

func (s *weddingService) Update(ctx context.Context, weddingID string, req *dto.UpdateWeddingRequest) (*dto.WeddingResponse, error) {
	w, err := s.getWedding(ctx, weddingID)
	if err != nil {
		return nil, err
	}
	if w.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	var ve pkgerrors.ValidationError
	if req.PartnerOneName != nil {
		w.PartnerOneName = strings.TrimSpace(*req.PartnerOneName)
	}
	if req.PartnerTwoName != nil {
		w.PartnerTwoName = strings.TrimSpace(*req.PartnerTwoName)
	}
	if req.WeddingDate != nil {
		date, err := time.Parse(dateLayout, *req.WeddingDate)
		if err != nil {
			ve.Add("wedding_date", "日期格式应为 YYYY-MM-DD")
		} else {
			w.WeddingDate = date
		}
	}
	if req.VenueName != nil {
		if strings.TrimSpace(*req.VenueName) == "" {
			ve.Add("venue_name", "场地名称不能为空")
		}
		w.VenueName = strings.TrimSpace(*req.VenueName)
	}
	if req.VenueAddress != nil {
		if strings.TrimSpace(*req.VenueAddress) == "" {
			ve.Add("venue_address", "场地地址不能为空")
		}
		w.VenueAddress = strings.TrimSpace(*req.VenueAddress)
	}
	if req.CeremonyTime != nil {
		validateClock(&ve, "ceremony_time", *req.CeremonyTime)
		w.CeremonyTime = *req.CeremonyTime
	}
	if req.ReceptionTime != nil {
		validateClock(&ve, "reception_time", *req.ReceptionTime)
		w.ReceptionTime = *req.ReceptionTime
	}
	if req.ContactEmail != nil {
		w.ContactEmail = strings.TrimSpace(*req.ContactEmail)
	}
	if req.ContactPhone != nil {
		w.ContactPhone = strings.TrimSpace(*req.ContactPhone)
	}
	if req.IsPublic != nil {
		w.IsPublic = *req.IsPublic
	}
	if req.MaxGuests != nil {
		if *req.MaxGuests == 0 {
			w.MaxGuests = nil
		} else {
			limit := *req.MaxGuests
			w.MaxGuests = &limit
		}
	}
	if req.Status != nil {
		w.Status = *req.Status
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	if req.AccessPassword != nil {
		if *req.AccessPassword == "" {
			w.AccessPasswordHash = ""
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.AccessPassword), bcrypt.DefaultCost)
			if err != nil {
				s.logger.Error("密码哈希失败", zap.Error(err))
				return nil, err
			}
			w.AccessPasswordHash = string(hash)
		}
	}

	if err := s.repo.Wedding.Update(ctx, w); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新婚礼失败", zap.String("wedding_id", weddingID), zap.Error(err))
		}
		return nil, err
	}

	return s.GetForOwner(ctx, weddingID)
}

// ────────────────────── RotateSecret ──────────────────────

// RotateSecret 由主人显式触发；旧链接与由其签发的会话一并失效
func (s *weddingService) RotateSecret(ctx context.Context, weddingID string) (*dto.RotateSecretResponse, error) {
	if _, err := s.getWedding(ctx, weddingID); err != nil {
		return nil, err
	}

	secret, err := newSecretToken()
	if err != nil {
		s.logger.Error("生成管理密钥失败", zap.Error(err))
		return nil, err
	}

	if err := s.repo.Wedding.RotateSecret(ctx, weddingID, secret, s.now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeddingNotFound
		}
		s.logger.Error("轮换管理密钥失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("管理密钥已轮换", zap.String("wedding_id", weddingID))

	return &dto.RotateSecretResponse{AdminLink: s.links.AdminURL(secret), AdminSecret: secret}, nil
}

// ────────────────────── Events ──────────────────────

func (s *weddingService) AddEvent(ctx context.Context, weddingID string, req *dto.EventRequest) (*dto.EventMutationResponse, error) {
	w, err := s.getWedding(ctx, weddingID)
	if err != nil {
		return nil, err
	}

	event := &model.WeddingEvent{WeddingID: weddingID}
	if err := applyEventRequest(event, req); err != nil {
		return nil, err
	}

	if err := s.repo.Event.Create(ctx, event); err != nil {
		s.logger.Error("创建活动失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}

	return &dto.EventMutationResponse{
		Event:    toEventResponse(event),
		Warnings: s.dateWarnings(w, event),
	}, nil
}

func (s *weddingService) UpdateEvent(ctx context.Context, weddingID, eventID string, req *dto.EventRequest) (*dto.EventMutationResponse, error) {
	w, err := s.getWedding(ctx, weddingID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.Event.GetByID(ctx, weddingID, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("查询活动失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	if err := applyEventRequest(event, req); err != nil {
		return nil, err
	}

	if err := s.repo.Event.Update(ctx, event); err != nil {
		s.logger.Error("更新活动失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	return &dto.EventMutationResponse{
		Event:    toEventResponse(event),
		Warnings: s.dateWarnings(w, event),
	}, nil
}

// RemoveEvent 软删除；引用该活动的邀请与回复保持原样，解析时自然过滤
func (s *weddingService) RemoveEvent(ctx context.Context, weddingID, eventID string) error {
	if err := s.repo.Event.Delete(ctx, weddingID, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEventNotFound
		}
		s.logger.Error("删除活动失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return nil
}

func (s *weddingService) ListEvents(ctx context.Context, weddingID string) ([]dto.EventResponse, error) {
	if _, err := s.getWedding(ctx, weddingID); err != nil {
		return nil, err
	}
	events, err := s.repo.Event.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		result = append(result, toEventResponse(&events[i]))
	}
	return result, nil
}

// ────────────────────── ImportEventsFromICS ──────────────────────

func (s *weddingService) ImportEventsFromICS(ctx context.Context, weddingID string, reader io.Reader) (*dto.ImportEventsResponse, error) {
	w, err := s.getWedding(ctx, weddingID)
	if err != nil {
		return nil, err
	}

	parsed, skipped, err := ParseEventsICS(reader)
	if err != nil {
		return nil, pkgerrors.NewValidation("file", "%s", err.Error())
	}

	existing, err := s.repo.Event.ListByWedding(ctx, weddingID)
	if err != nil {
		s.logger.Error("查询活动失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	nextOrder := 0
	for _, e := range existing {
		if e.DisplayOrder >= nextOrder {
			nextOrder = e.DisplayOrder + 1
		}
	}

	resp := &dto.ImportEventsResponse{Skipped: skipped, Imported: []dto.EventResponse{}}
	for i := range parsed {
		event := parsed[i]
		event.WeddingID = weddingID
		event.DisplayOrder = nextOrder
		nextOrder++

		if err := s.repo.Event.Create(ctx, &event); err != nil {
			s.logger.Error("导入活动失败", zap.String("wedding_id", weddingID), zap.String("name", event.Name), zap.Error(err))
			return nil, err
		}
		resp.Imported = append(resp.Imported, toEventResponse(&event))
		resp.Warnings = append(resp.Warnings, s.dateWarnings(w, &event)...)
	}

	s.logger.Info("日历导入完成",
		zap.String("wedding_id", weddingID),
		zap.Int("imported", len(resp.Imported)),
		zap.Int("skipped", skipped),
	)
	return resp, nil
}

// ── 辅助函数 ──

func (s *weddingService) getWedding(ctx context.Context, weddingID string) (*model.Wedding, error) {
	w, err := s.repo.Wedding.GetByID(ctx, weddingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWeddingNotFound
		}
		s.logger.Error("查询婚礼失败", zap.String("wedding_id", weddingID), zap.Error(err))
		return nil, err
	}
	return w, nil
}

// dateWarnings 活动日期偏离婚期超过窗口时给出警告，不拒绝
func (s *weddingService) dateWarnings(w *model.Wedding, e *model.WeddingEvent) []string {
	weddingDay := time.Date(w.WeddingDate.Year(), w.WeddingDate.Month(), w.WeddingDate.Day(), 0, 0, 0, 0, time.UTC)
	start := e.StartsAt.UTC()
	eventDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	days := int(math.Round(eventDay.Sub(weddingDay).Hours() / 24))
	if days < 0 {
		days = -days
	}
	if days <= s.cfg.EventWindowDays {
		return nil
	}
	s.logger.Warn("活动日期偏离婚期",
		zap.String("wedding_id", w.WeddingID),
		zap.String("event", e.Name),
		zap.Int("days", days),
	)
	return []string{fmt.Sprintf("活动「%s」距婚期 %d 天，超出 ±%d 天范围，请确认日期", e.Name, days, s.cfg.EventWindowDays)}
}

func applyEventRequest(e *model.WeddingEvent, req *dto.EventRequest) error {
	var ve pkgerrors.ValidationError

	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "活动名称不能为空")
	}
	start, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		ve.Add("starts_at", "时间格式应为 RFC3339")
	}
	var end *time.Time
	if req.EndsAt != "" {
		t, err := time.Parse(time.RFC3339, req.EndsAt)
		switch {
		case err != nil:
			ve.Add("ends_at", "时间格式应为 RFC3339")
		case !start.IsZero() && !t.After(start):
			ve.Add("ends_at", "结束时间必须晚于开始时间")
		default:
			end = &t
		}
	}
	if err := ve.ErrOrNil(); err != nil {
		return err
	}

	e.Name = strings.TrimSpace(req.Name)
	e.Description = req.Description
	e.StartsAt = start
	e.EndsAt = end
	e.VenueName = req.VenueName
	e.VenueAddress = req.VenueAddress
	e.DressCode = req.DressCode
	e.IsPrivate = req.IsPrivate
	e.MaxGuests = req.MaxGuests
	e.DisplayOrder = req.DisplayOrder
	return nil
}

func validateClock(ve *pkgerrors.ValidationError, field, value string) {
	if value == "" {
		return
	}
	if _, err := time.Parse(clockLayout, value); err != nil {
		ve.Add(field, "时间格式应为 HH:MM")
	}
}

func newSecretToken() (string, error) {
	buf := make([]byte, secretByteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isValidSlug(slug string) bool {
	if len(slug) < 3 || len(slug) > 120 || slug[0] == '-' || slug[len(slug)-1] == '-' {
		return false
	}
	for i := 0; i < len(slug); i++ {
		c := slug[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// slugify 取姓名中的 ASCII 字母数字，拼接婚期；非拉丁姓名退化为 "wedding-日期"
func slugify(one, two string, date time.Time) string {
	var parts []string
	for _, name := range []string{one, two} {
		var b strings.Builder
		for _, r := range strings.ToLower(foldAccents(name)) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	if len(parts) == 0 {
		parts = []string{"wedding"}
	}
	return strings.Join(parts, "-") + "-" + date.Format("20060102")
}

// foldAccents 分解后去掉组合附加符号，如 ë → e；无法折叠的字符原样保留
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func toWeddingSummary(w *model.Wedding) dto.WeddingSummary {
	return dto.WeddingSummary{
		Slug:           w.Slug,
		PartnerOneName: w.PartnerOneName,
		PartnerTwoName: w.PartnerTwoName,
		WeddingDate:    w.WeddingDate.Format(dateLayout),
		VenueName:      w.VenueName,
		VenueAddress:   w.VenueAddress,
		CeremonyTime:   w.CeremonyTime,
		ReceptionTime:  w.ReceptionTime,
	}
}

func toWeddingResponse(w *model.Wedding, events []model.WeddingEvent) *dto.WeddingResponse {
	resp := &dto.WeddingResponse{
		WeddingID:      w.WeddingID,
		Slug:           w.Slug,
		PartnerOneName: w.PartnerOneName,
		PartnerTwoName: w.PartnerTwoName,
		WeddingDate:    w.WeddingDate.Format(dateLayout),
		VenueName:      w.VenueName,
		VenueAddress:   w.VenueAddress,
		CeremonyTime:   w.CeremonyTime,
		ReceptionTime:  w.ReceptionTime,
		ContactEmail:   w.ContactEmail,
		ContactPhone:   w.ContactPhone,
		IsPublic:       w.IsPublic,
		HasPassword:    w.AccessPasswordHash != "",
		MaxGuests:      w.MaxGuests,
		Status:         w.Status,
		Version:        w.Version,
		Events:         make([]dto.EventResponse, 0, len(events)),
	}
	for i := range events {
		resp.Events = append(resp.Events, toEventResponse(&events[i]))
	}
	return resp
}

func toEventResponse(e *model.WeddingEvent) dto.EventResponse {
	return dto.EventResponse{
		EventID:      e.EventID,
		Name:         e.Name,
		Description:  e.Description,
		StartsAt:     formatTime(e.StartsAt),
		EndsAt:       formatTimePtr(e.EndsAt),
		VenueName:    e.VenueName,
		VenueAddress: e.VenueAddress,
		DressCode:    e.DressCode,
		IsPrivate:    e.IsPrivate,
		MaxGuests:    e.MaxGuests,
		DisplayOrder: e.DisplayOrder,
	}
}
