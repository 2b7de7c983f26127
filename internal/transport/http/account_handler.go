package httptransport

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"mailadmin/backend/internal/monitoring"
	"mailadmin/backend/internal/service"
	"mailadmin/backend/internal/storage"
)

// AccountHandler 账户生命周期处理器
type AccountHandler struct {
	accountService *service.AccountService
	metrics        *monitoring.Metrics
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(accountService *service.AccountService, metrics *monitoring.Metrics) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		metrics:        metrics,
	}
}

// ListAdmins godoc
// @Summary 管理类账户用户名列表
// @Description 返回非超级管理员的管理类账户的用户名
// @Tags Accounts
// @Produce json
// @Success 200 {array} string
// @Failure 403 {object} Response
// @Router /v1/accounts/ [get]
func (h *AccountHandler) ListAdmins(c *gin.Context) {
	usernames, err := h.accountService.ListAdminUsernames()
	if err != nil {
		InternalError(c, MsgListFailed)
		return
	}
	c.JSON(200, usernames)
}

// wizardRequest 创建向导的一步提交
type wizardRequest struct {
	Step    string              `json:"step" form:"step" binding:"required"`
	General *service.GeneralForm `json:"general" form:"general"`
	Mail    *service.MailForm    `json:"mail" form:"mail"`
	Perms   *service.PermsForm   `json:"perms" form:"perms"`
}

// Wizard godoc
// @Summary 账户创建向导
// @Description 按 step 字段推进三步向导（general → mail → perms），
// @Description 中间步骤暂存会话，最后一步在单个事务内落地
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body wizardRequest true "向导步骤数据"
// @Success 200 {object} AjaxResponse
// @Failure 400 {object} Response
// @Router /v1/accounts/new/ [post]
func (h *AccountHandler) Wizard(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req wizardRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, MsgWizardStepNeeded)
		return
	}

	switch req.Step {
	case "general":
		if req.General == nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		if err := h.accountService.WizardGeneral(caller, req.General); err != nil {
			AjaxKO(c, "", GetErrorMessage(err))
			return
		}
		AjaxOK(c, "")

	case "mail":
		if req.Mail == nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
		if err := h.accountService.WizardMail(caller, req.Mail); err != nil {
			AjaxKO(c, "", GetErrorMessage(err))
			return
		}
		AjaxOK(c, "")

	case "perms":
		if req.Perms == nil {
			req.Perms = &service.PermsForm{}
		}
		account, err := h.accountService.WizardFinalize(caller, req.Perms)
		if err != nil {
			AjaxKO(c, "", GetErrorMessage(err))
			return
		}
		h.metrics.AccountsCreated.Inc()
		AjaxOK(c, fmt.Sprintf("账户 %s 创建成功", account.Username))

	default:
		BadRequest(c, MsgWizardStepNeeded)
	}
}

// EditBundle godoc
// @Summary 账户编辑表单包
// @Description 返回预填的子表单集合（基本信息、邮箱、授权及注册协作者）
// @Tags Accounts
// @Produce json
// @Param id path string true "账户ID"
// @Success 200 {object} service.EditBundle
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /v1/accounts/{id}/edit/ [get]
func (h *AccountHandler) EditBundle(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	bundle, err := h.accountService.GetEditBundle(caller, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			NotFound(c, MsgAccountNotFound)
		case errors.Is(err, service.ErrPermissionDenied):
			Forbidden(c, MsgPermissionDenied)
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}
	Success(c, bundle)
}

// editRequest 账户编辑提交
type editRequest struct {
	General *service.GeneralForm `json:"general" binding:"required"`
	Mail    *service.MailForm    `json:"mail"`
	Perms   *service.PermsForm   `json:"perms"`
	Extra   map[string]string    `json:"extra"`
}

// Edit godoc
// @Summary 保存账户编辑
// @Description 校验全部子表单后在单个事务内保存，任何失败都不留部分提交
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "账户ID"
// @Param request body editRequest true "编辑数据"
// @Success 200 {object} AjaxResponse
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /v1/accounts/{id}/edit/ [post]
func (h *AccountHandler) Edit(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	err := h.accountService.Edit(caller, c.Param("id"), service.EditInput{
		General: req.General,
		Mail:    req.Mail,
		Perms:   req.Perms,
		Extra:   req.Extra,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			NotFound(c, MsgAccountNotFound)
		case errors.Is(err, service.ErrPermissionDenied):
			Forbidden(c, MsgPermissionDenied)
		default:
			AjaxKO(c, "", GetErrorMessage(err))
		}
		return
	}
	AjaxOK(c, "账户已更新")
}

// deleteRequest 账户删除提交
type deleteRequest struct {
	KeepDir bool `json:"keepdir" form:"keepdir"`
}

// Delete godoc
// @Summary 删除账户
// @Description 级联删除邮箱、配额记录、别名成员关系与授权；
// @Description keepdir 为 true 时保留磁盘上的邮件目录
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "账户ID"
// @Param request body deleteRequest false "删除选项"
// @Success 200 {object} AjaxResponse
// @Failure 403 {object} Response
// @Router /v1/accounts/{id}/delete/ [post]
func (h *AccountHandler) Delete(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req deleteRequest
	_ = c.ShouldBind(&req)

	err := h.accountService.Delete(caller, c.Param("id"), req.KeepDir)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			NotFound(c, MsgAccountNotFound)
		case errors.Is(err, service.ErrPermissionDenied):
			Forbidden(c, MsgPermissionDenied)
		default:
			AjaxKO(c, "", GetErrorMessage(err))
		}
		return
	}

	h.metrics.AccountsDeleted.Inc()
	AjaxOK(c, pluralize(1, "账户已删除", "账户已全部删除"))
}

// pluralize 按数量选择提示消息
func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
