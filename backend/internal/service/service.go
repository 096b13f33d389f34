package service

import (
	"time"

	"go.uber.org/zap"

	"wedly/backend/config"
	"wedly/backend/internal/repository"
	"wedly/backend/pkg/i18n"
	"wedly/backend/pkg/jwt"
	"wedly/backend/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Wedding    WeddingService
	Session    OwnerSessionService
	Invitation InvitationService
	RSVP       RSVPService
	Question   QuestionService
	Dashboard  DashboardService
	Export     ExportService
	Calendar   CalendarService
}

// Deps 构造 Service 所需的基础设施
// Blacklist 可为 nil（未配置 Redis 时会话注销不可用）
type Deps struct {
	Config     *config.Config
	Repo       *repository.Repository
	JWT        *jwt.Manager
	Blacklist  TokenBlacklist
	Metrics    *metrics.Metrics
	Translator *i18n.Translator
	Logger     *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	links := newLinkBuilder(d.Config.Server.PublicSiteURL)
	resolver := &codeResolver{repo: d.Repo}
	codes := NewRandomCodeSource(d.Config.RSVP.CodeSegmentLength)

	return &Service{
		Wedding:    NewWeddingService(d.Repo, &d.Config.RSVP, links, d.Logger),
		Session:    NewOwnerSessionService(d.Repo, d.JWT, d.Blacklist, d.Logger),
		Invitation: NewInvitationService(d.Repo, &d.Config.RSVP, codes, links, resolver, d.Metrics, d.Logger),
		RSVP:       NewRSVPService(d.Repo, resolver, d.Translator, d.Metrics, d.Logger),
		Question:   NewQuestionService(d.Repo, d.Logger),
		Dashboard:  NewDashboardService(d.Repo, d.Logger),
		Export:     NewExportService(d.Repo, d.Logger),
		Calendar:   NewCalendarService(resolver, links, d.Logger),
	}
}

// ── 公共辅助 ──

// linkBuilder 拼接前台站点链接
type linkBuilder struct {
	base string
}

func newLinkBuilder(publicSiteURL string) *linkBuilder {
	for len(publicSiteURL) > 0 && publicSiteURL[len(publicSiteURL)-1] == '/' {
		publicSiteURL = publicSiteURL[:len(publicSiteURL)-1]
	}
	return &linkBuilder{base: publicSiteURL}
}

// RSVPPath 相对链接 /rsvp/{code}
func (l *linkBuilder) RSVPPath(code string) string {
	return "/rsvp/" + code
}

// RSVPURL 二维码目标地址（绝对链接）
func (l *linkBuilder) RSVPURL(code string) string {
	return l.base + l.RSVPPath(code)
}

// AdminURL 管理链接
func (l *linkBuilder) AdminURL(secret string) string {
	return l.base + "/manage/" + secret
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// pageOffset 页码转偏移
func pageOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
