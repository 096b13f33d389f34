package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics RSVP 业务指标
// 所有方法对 nil 接收者安全，单元测试可直接传 nil
type Metrics struct {
	invitationsCreated      prometheus.Counter
	rsvpSubmissions         *prometheus.CounterVec
	codeGenerationExhausted prometheus.Counter
	httpDuration            *prometheus.HistogramVec
}

// New 创建指标并注册到 reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invitationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wedly",
			Name:      "invitations_created_total",
			Help:      "成功创建的邀请数",
		}),
		rsvpSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wedly",
			Name:      "rsvp_submissions_total",
			Help:      "RSVP 提交次数，按结果分类",
		}, []string{"result"}),
		codeGenerationExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wedly",
			Name:      "invitation_code_exhausted_total",
			Help:      "邀请码生成重试耗尽次数",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wedly",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.invitationsCreated, m.rsvpSubmissions, m.codeGenerationExhausted, m.httpDuration)
	return m
}

// RSVP 提交结果标签
const (
	ResultCreated  = "created"
	ResultUpdated  = "updated"
	ResultRejected = "rejected"
)

// InvitationsCreated 累加新建邀请数
func (m *Metrics) InvitationsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invitationsCreated.Add(float64(n))
}

// RSVPSubmitted 记录一次提交结果
func (m *Metrics) RSVPSubmitted(result string) {
	if m == nil {
		return
	}
	m.rsvpSubmissions.WithLabelValues(result).Inc()
}

// CodeGenerationExhausted 记录一次邀请码重试耗尽
func (m *Metrics) CodeGenerationExhausted() {
	if m == nil {
		return
	}
	m.codeGenerationExhausted.Inc()
}

// ObserveHTTP 记录请求耗时
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
