package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailadmin/backend/internal/domain"
)

// currentAccount 取出能力中间件放入上下文的调用者账户
func currentAccount(c *gin.Context) *domain.Account {
	value, ok := c.Get("account")
	if !ok {
		return nil
	}
	account, ok := value.(*domain.Account)
	if !ok {
		return nil
	}
	return account
}
