package httptransport

import (
	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/listing"
	"mailadmin/backend/internal/service"
	"mailadmin/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 通用
	service.ErrPermissionDenied: "权限不足",
	service.ErrInvalidRequest:   "请求参数无效",
	listing.ErrInvalidSortKey:   "排序键无效",

	// 账户
	storage.ErrAccountNotFound:  "账户不存在",
	service.ErrUsernameTaken:    "用户名已被占用",
	service.ErrAddressTaken:     "邮箱地址已被占用",
	service.ErrUnknownDomain:    "域不存在",
	service.ErrWizardIncomplete: "请先完成前面的步骤",
	service.ErrOwnAccount:       "不能删除自己的账户",

	// 认证
	auth.ErrInvalidCredentials: "用户名或密码错误",
	auth.ErrAccountInactive:    "账户已被禁用",

	// 用户偏好
	service.ErrNoMailbox:        "当前账户没有邮箱",
	service.ErrBadDestination:   "转发地址格式无效",
	service.ErrPasswordMismatch: "两次输入的密码不一致",
	service.ErrBadOldPassword:   "旧密码错误",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	MsgInvalidRequest   = "请求参数格式错误"
	MsgAuthRequired     = "需要登录认证"
	MsgPermissionDenied = "权限不足"
	MsgInternalError    = "服务器内部错误，请稍后重试"

	MsgListFailed       = "获取列表失败"
	MsgRenderFailed     = "页面渲染失败"
	MsgAccountNotFound  = "账户不存在"
	MsgWizardStepNeeded = "缺少向导步骤标识"
)
