package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"mailadmin/backend/internal/listing"
	"mailadmin/backend/internal/service"
)

// QuotaHandler 配额列表处理器
type QuotaHandler struct {
	quotaService *service.QuotaService
}

// NewQuotaHandler 创建配额处理器
func NewQuotaHandler(quotaService *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quotaService: quotaService}
}

// List godoc
// @Summary 配额列表
// @Description 返回调用者管理范围内各邮箱的配额与使用率，
// @Description 配额为 0（无限）的邮箱不在列表中
// @Tags Quotas
// @Produce json
// @Param searchquery query string false "按完整地址搜索"
// @Param sort_order query string false "排序键（address/quota/quota_value__bytes/quota_usage）" default(address)
// @Param page query int false "页码" default(1)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} Response
// @Router /v1/quotas/list/ [get]
func (h *QuotaHandler) List(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	out, err := h.quotaService.List(caller, service.ListQuotasInput{
		SearchQuery: c.Query("searchquery"),
		SortOrder:   c.Query("sort_order"),
		Page:        page,
	})
	if err != nil {
		if errors.Is(err, listing.ErrInvalidSortKey) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgListFailed)
		return
	}

	if out.Page == nil {
		c.JSON(200, gin.H{"page": 1, "paginbar": "", "table": ""})
		return
	}

	table, err := renderFragment("quota_table", out.Quotas)
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}
	paginbar, err := renderFragment("paginbar", newPaginbarData(out.Page.Number, out.Page.Pages))
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}

	c.JSON(200, gin.H{
		"page":     out.Page.Number,
		"paginbar": paginbar,
		"table":    table,
	})
}
