package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/authz"
	"mailadmin/backend/internal/domain"
)

// CapabilityGate 能力检查中间件。必须挂在 JWTAuth.RequireAuth
// 之后，依赖上下文中的 accountID。
type CapabilityGate struct {
	authService *auth.Service
	log         *zap.Logger
}

// NewCapabilityGate 创建能力检查中间件
func NewCapabilityGate(authService *auth.Service, log *zap.Logger) *CapabilityGate {
	return &CapabilityGate{
		authService: authService,
		log:         log,
	}
}

// RequireAny 要求调用者至少具备其中一个能力。
// 通过后把完整账户放入上下文，处理器用它做可见范围裁剪。
func (g *CapabilityGate) RequireAny(caps ...authz.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := g.loadAccount(c)
		if account == nil {
			return
		}

		if !authz.HasAny(account, caps...) {
			g.log.Warn("capability denied",
				zap.String("account_id", account.ID),
				zap.String("path", c.Request.URL.Path),
			)
			c.JSON(http.StatusForbidden, gin.H{
				"error": "permission denied",
			})
			c.Abort()
			return
		}

		c.Set("account", account)
		c.Next()
	}
}

// RequireRole 要求调用者属于指定角色
func (g *CapabilityGate) RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := g.loadAccount(c)
		if account == nil {
			return
		}

		if account.Role != role {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "permission denied",
			})
			c.Abort()
			return
		}

		c.Set("account", account)
		c.Next()
	}
}

// LoadAccount 仅加载账户到上下文，不做能力检查
func (g *CapabilityGate) LoadAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.loadAccount(c) == nil {
			return
		}
		c.Next()
	}
}

func (g *CapabilityGate) loadAccount(c *gin.Context) *domain.Account {
	accountID := c.GetString("accountID")
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
		})
		c.Abort()
		return nil
	}

	account, err := g.authService.GetAccountByID(accountID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "account not found",
		})
		c.Abort()
		return nil
	}

	if !account.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "account is inactive",
		})
		c.Abort()
		return nil
	}

	c.Set("account", account)
	return account
}
