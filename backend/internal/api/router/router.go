package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wedly/backend/config"
	"wedly/backend/internal/api/handler"
	"wedly/backend/internal/api/middleware"
	"wedly/backend/pkg/jwt"
	"wedly/backend/pkg/metrics"
	"wedly/backend/pkg/redis"
)

const (
	maxJSONBody   = 1 << 20 // 1MB
	maxUploadBody = 5 << 20 // 宾客名单与日历文件
)

// Options 路由依赖
// Redis 与 Gatherer 可为 nil：前者关闭限流，后者不暴露 /metrics
type Options struct {
	Config   *config.Config
	Handler  *handler.Handler
	JWT      *jwt.Manager
	Owner    middleware.OwnerVerifier
	Redis    *redis.Client
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   func() error
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(o Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidatorTagNames()

	r := gin.New()
	h := o.Handler

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(o.Logger))
	r.Use(middleware.Metrics(o.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(o.Config.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if o.Health != nil {
			if err := o.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if o.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{})))
	}

	jsonLimit := middleware.BodyLimit(maxJSONBody)
	uploadLimit := middleware.BodyLimit(maxUploadBody)
	codeLimit := middleware.RateLimit(o.Redis, o.Config.RSVP.RateLimitPerMinute, time.Minute, o.Logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 婚礼创建与公开页（无需认证）
		v1.POST("/weddings", jsonLimit, h.Wedding.Create)
		v1.GET("/weddings/:slug", codeLimit, h.Wedding.GetPublic)

		// 访客邀请码接口（按 IP 限流）
		rsvp := v1.Group("/rsvp/:code", codeLimit, jsonLimit)
		{
			rsvp.GET("", h.Invitation.Resolve)
			rsvp.POST("", h.RSVP.Submit)
			rsvp.POST("/viewed", h.Invitation.MarkViewed)
			rsvp.GET("/calendar.ics", h.Invitation.Calendar)
		}

		// 主人会话
		owner := v1.Group("/owner", middleware.NoStore())
		{
			owner.POST("/session", codeLimit, jsonLimit, h.Session.Create)
			owner.POST("/logout", middleware.OwnerAuth(o.JWT, o.Owner), h.Session.Logout)
		}

		// 主人管理接口
		manage := v1.Group("/manage")
		manage.Use(middleware.NoStore(), middleware.OwnerAuth(o.JWT, o.Owner))
		{
			manage.GET("/wedding", h.Wedding.Get)
			manage.PUT("/wedding", jsonLimit, h.Wedding.Update)
			manage.POST("/wedding/rotate-secret", h.Wedding.RotateSecret)

			events := manage.Group("/events")
			{
				events.GET("", h.Wedding.ListEvents)
				events.POST("", jsonLimit, h.Wedding.AddEvent)
				events.POST("/import", uploadLimit, h.Wedding.ImportEvents)
				events.PUT("/:id", jsonLimit, h.Wedding.UpdateEvent)
				events.DELETE("/:id", h.Wedding.RemoveEvent)
			}

			invitations := manage.Group("/invitations")
			{
				invitations.GET("", h.Invitation.List)
				invitations.POST("", jsonLimit, h.Invitation.Create)
				invitations.POST("/import", uploadLimit, h.Invitation.ImportGuestList)
				invitations.GET("/:id", h.Invitation.Get)
				invitations.PUT("/:id", jsonLimit, h.Invitation.Update)
				invitations.GET("/:id/qrcode", h.Invitation.QRCode)
			}

			rsvps := manage.Group("/rsvps")
			{
				rsvps.GET("", h.RSVP.List)
				rsvps.GET("/export", h.Export.ExportRSVPs)
			}

			questions := manage.Group("/questions")
			{
				questions.GET("", h.Question.List)
				questions.POST("", jsonLimit, h.Question.Create)
				questions.PUT("/:id", jsonLimit, h.Question.Update)
				questions.DELETE("/:id", h.Question.Delete)
			}

			manage.GET("/dashboard", h.Dashboard.Get)
		}
	}

	return r
}
