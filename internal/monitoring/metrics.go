package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 业务指标
	AccountsCreated prometheus.Counter
	AccountsDeleted prometheus.Counter
	ForwardsUpdated prometheus.Counter
	AdminsRevoked   prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailadmin_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailadmin_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		AccountsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailadmin_accounts_created_total",
				Help: "Total number of accounts created through the wizard",
			},
		),

		AccountsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailadmin_accounts_deleted_total",
				Help: "Total number of accounts deleted",
			},
		),

		ForwardsUpdated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailadmin_forwards_updated_total",
				Help: "Total number of forward definitions updated",
			},
		),

		AdminsRevoked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailadmin_domain_admins_revoked_total",
				Help: "Total number of domain administrator grants revoked",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailadmin_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailadmin_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// Middleware 返回记录请求指标的 gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// HTTPHandler 返回 Prometheus 指标端点处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
