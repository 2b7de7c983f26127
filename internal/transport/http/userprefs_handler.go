package httptransport

import (
	"strings"

	"github.com/gin-gonic/gin"

	"mailadmin/backend/internal/monitoring"
	"mailadmin/backend/internal/service"
)

// UserPrefsHandler 用户偏好处理器
type UserPrefsHandler struct {
	prefsService *service.UserPrefsService
	metrics      *monitoring.Metrics
}

// NewUserPrefsHandler 创建用户偏好处理器
func NewUserPrefsHandler(prefsService *service.UserPrefsService, metrics *monitoring.Metrics) *UserPrefsHandler {
	return &UserPrefsHandler{
		prefsService: prefsService,
		metrics:      metrics,
	}
}

// Page godoc
// @Summary 用户偏好页面
// @Description 返回个人设置页面骨架
// @Tags UserPrefs
// @Produce html
// @Success 200 {string} string
// @Router /v1/userprefs/ [get]
func (h *UserPrefsHandler) Page(c *gin.Context) {
	html, err := renderFragment("userprefs_page", nil)
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(200, html)
}

// ========== 转发 ==========

// GetForward godoc
// @Summary 转发设置表单
// @Tags UserPrefs
// @Produce json
// @Success 200 {object} Response
// @Router /v1/userprefs/forward/ [get]
func (h *UserPrefsHandler) GetForward(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	form, err := h.prefsService.GetForward(caller)
	if err != nil {
		AjaxKO(c, "", GetErrorMessage(err))
		return
	}

	html, err := renderFragment("forward_form", form)
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}
	Success(c, gin.H{"content": html})
}

// forwardRequest 转发设置提交
type forwardRequest struct {
	Dest       string `json:"dest" form:"dest"` // 每行一个地址
	KeepCopies bool   `json:"keepcopies" form:"keepcopies"`
}

// SetForward godoc
// @Summary 保存转发设置
// @Description 所有目的地址先完成格式校验再写入；校验失败时返回
// @Description status=ko 并携带回填了提交数据的表单，别名保持原状
// @Tags UserPrefs
// @Accept json
// @Produce json
// @Param request body forwardRequest true "转发设置"
// @Success 200 {object} AjaxResponse
// @Router /v1/userprefs/forward/ [post]
func (h *UserPrefsHandler) SetForward(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req forwardRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	form := &service.ForwardForm{
		Destinations: splitLines(req.Dest),
		KeepCopies:   req.KeepCopies,
	}

	if err := h.prefsService.SetForward(caller, form); err != nil {
		// 回填提交数据重渲染，让用户原地修正
		content, renderErr := renderFragment("forward_form", form)
		if renderErr != nil {
			content = ""
		}
		AjaxKO(c, content, GetErrorMessage(err))
		return
	}

	h.metrics.ForwardsUpdated.Inc()
	AjaxOK(c, "转发设置已保存")
}

// ========== 个人资料 ==========

// GetProfile godoc
// @Summary 个人资料表单
// @Tags UserPrefs
// @Produce json
// @Success 200 {object} Response
// @Router /v1/userprefs/profile/ [get]
func (h *UserPrefsHandler) GetProfile(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	form := h.prefsService.GetProfile(caller)
	html, err := renderFragment("profile_form", form)
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}
	Success(c, gin.H{"content": html})
}

// profileRequest 个人资料提交
type profileRequest struct {
	FirstName    string `json:"first_name" form:"first_name"`
	LastName     string `json:"last_name" form:"last_name"`
	OldPassword  string `json:"oldpassword" form:"oldpassword"`
	NewPassword  string `json:"newpassword" form:"newpassword"`
	Confirmation string `json:"confirmation" form:"confirmation"`
}

// UpdateProfile godoc
// @Summary 保存个人资料
// @Description 密码变更要求旧密码正确且两次输入一致
// @Tags UserPrefs
// @Accept json
// @Produce json
// @Param request body profileRequest true "个人资料"
// @Success 200 {object} AjaxResponse
// @Router /v1/userprefs/profile/ [post]
func (h *UserPrefsHandler) UpdateProfile(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	err := h.prefsService.UpdateProfile(caller, service.ProfileInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		OldPassword:  req.OldPassword,
		NewPassword:  req.NewPassword,
		Confirmation: req.Confirmation,
	})
	if err != nil {
		// 回填提交数据重渲染，让用户原地修正
		form := h.prefsService.GetProfile(caller)
		form.FirstName = req.FirstName
		form.LastName = req.LastName
		content, renderErr := renderFragment("profile_form", form)
		if renderErr != nil {
			content = ""
		}
		AjaxKO(c, content, GetErrorMessage(err))
		return
	}
	AjaxOK(c, "个人资料已更新")
}

// ========== 参数 ==========

// GetPreferences godoc
// @Summary 偏好参数表单
// @Description 按应用字典序与参数注册顺序返回可编辑参数
// @Tags UserPrefs
// @Produce json
// @Success 200 {object} Response
// @Router /v1/userprefs/preferences/ [get]
func (h *UserPrefsHandler) GetPreferences(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	views, err := h.prefsService.EditableParameters(caller)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	html, err := renderFragment("preferences_form", views)
	if err != nil {
		InternalError(c, MsgRenderFailed)
		return
	}
	Success(c, gin.H{"content": html, "params": views})
}

// SavePreferences godoc
// @Summary 保存偏好参数
// @Description 遍历 app.paramName=value 键值对，保留键 update 跳过
// @Tags UserPrefs
// @Accept json
// @Produce json
// @Success 200 {object} AjaxResponse
// @Failure 400 {object} Response
// @Router /v1/userprefs/preferences/ [post]
func (h *UserPrefsHandler) SavePreferences(c *gin.Context) {
	caller := currentAccount(c)
	if caller == nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.prefsService.SavePreferences(caller, values); err != nil {
		BadRequest(c, GetErrorMessage(err))
		return
	}
	AjaxOK(c, "偏好已保存")
}

// splitLines 按行拆分文本域内容
func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
