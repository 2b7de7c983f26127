// Package health 提供存活与就绪检查端点。
package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailadmin/backend/internal/storage"
)

// Pinger 可被健康检查探测的组件
type Pinger interface {
	Health() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.Store, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	hc.health.AddLivenessCheck("database", func() error {
		return hc.store.Health()
	})
	hc.health.AddReadinessCheck("database", func() error {
		return hc.store.Health()
	})

	return hc
}

// AddCheck 注册额外的存活检查（如 Redis 会话缓存）
func (hc *HealthChecker) AddCheck(name string, p Pinger) {
	hc.health.AddLivenessCheck(name, p.Health)
}

// Handler 返回健康检查处理器
func (hc *HealthChecker) Handler() http.Handler {
	return hc.health
}

// LiveEndpoint 存活检查端点
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查端点
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}
