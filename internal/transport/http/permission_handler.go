package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mailadmin/backend/internal/monitoring"
	"mailadmin/backend/internal/service"
)

// PermissionHandler 域管理授权处理器
type PermissionHandler struct {
	permissionService *service.PermissionService
	metrics           *monitoring.Metrics
}

// NewPermissionHandler 创建授权处理器
func NewPermissionHandler(permissionService *service.PermissionService, metrics *monitoring.Metrics) *PermissionHandler {
	return &PermissionHandler{
		permissionService: permissionService,
		metrics:           metrics,
	}
}

// Remove godoc
// @Summary 撤销域管理授权
// @Description 把账户从域的管理员集合中移除；任一 ID 缺失或无法
// @Description 解析时返回 400 且授权集合保持不变
// @Tags Permissions
// @Produce json
// @Param domid query string true "域ID"
// @Param daid query string true "账户ID"
// @Success 200 {object} AjaxResponse
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /v1/permissions/remove/ [get]
func (h *PermissionHandler) Remove(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	err := h.permissionService.RevokeDomainAdmin(caller, c.Query("domid"), c.Query("daid"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrPermissionDenied):
			Forbidden(c, MsgPermissionDenied)
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	h.metrics.AdminsRevoked.Inc()
	AjaxOK(c, "授权已撤销")
}
