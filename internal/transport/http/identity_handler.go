package httptransport

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"mailadmin/backend/internal/listing"
	"mailadmin/backend/internal/service"
)

// IdentityHandler 身份列表处理器
type IdentityHandler struct {
	identityService *service.IdentityService
}

// NewIdentityHandler 创建身份处理器
func NewIdentityHandler(identityService *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identityService: identityService}
}

// Page godoc
// @Summary 身份列表页面
// @Description 返回账户与别名统一列表的页面骨架
// @Tags Identities
// @Produce html
// @Success 200 {string} string
// @Failure 403 {object} Response
// @Router /v1/identities/ [get]
func (h *IdentityHandler) Page(c *gin.Context) {
	html, err := renderFragment("identities_page", nil)
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(200, html)
}

// List godoc
// @Summary 身份列表数据
// @Description 返回当前页的身份行与分页信息；带过滤参数的请求会把
// @Description 过滤条件写入会话，翻页请求不带参数时自动沿用
// @Tags Identities
// @Produce json
// @Param searchquery query string false "搜索词"
// @Param idtfilter query string false "类型过滤（account/alias/forward/dlist）"
// @Param grpfilter query string false "组过滤"
// @Param sort_order query string false "排序键，- 前缀为降序" default(identity)
// @Param page query int false "页码" default(1)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} Response
// @Router /v1/identities/list/ [get]
func (h *IdentityHandler) List(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	input := service.ListIdentitiesInput{
		SortOrder: c.Query("sort_order"),
		Page:      page,
	}

	// 任一过滤参数出现即视为新的过滤请求，否则沿用会话
	if hasAnyQuery(c, "searchquery", "idtfilter", "grpfilter") {
		input.Filters = &service.IdentityFilters{
			SearchQuery: c.Query("searchquery"),
			IdtFilter:   c.Query("idtfilter"),
			GrpFilter:   c.Query("grpfilter"),
		}
	}

	out, err := h.identityService.List(caller, input)
	if err != nil {
		if errors.Is(err, listing.ErrInvalidSortKey) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgListFailed)
		return
	}

	if out.Page == nil {
		c.JSON(200, gin.H{"length": 0})
		return
	}

	rows, err := renderFragment("identity_rows", out.Identities)
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}

	c.JSON(200, gin.H{
		"rows":  rows,
		"pages": []int{out.Page.Number},
	})
}

// hasAnyQuery 判断请求是否携带任一指定查询参数
func hasAnyQuery(c *gin.Context, keys ...string) bool {
	for _, key := range keys {
		if _, ok := c.GetQuery(key); ok {
			return true
		}
	}
	return false
}
