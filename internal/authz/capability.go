// Package authz 提供枚举化的能力集合与纯函数式的授权判定。
// 所有入口的权限门都通过 Has / HasAny 判定，不在任何处理器里
// 内联布尔表达式。
package authz

import "mailadmin/backend/internal/domain"

// Capability 执行某类操作所需的命名权限
type Capability string

const (
	// CapAddAccount 创建账户
	CapAddAccount Capability = "core.add_user"
	// CapChangeAccount 编辑账户
	CapChangeAccount Capability = "core.change_user"
	// CapDeleteAccount 删除账户
	CapDeleteAccount Capability = "core.delete_user"
	// CapAddAlias 创建别名
	CapAddAlias Capability = "admin.add_alias"
	// CapAddMailbox 创建邮箱
	CapAddMailbox Capability = "admin.add_mailbox"
	// CapAddDomain 创建域（域管理员授权的撤销也要求该能力）
	CapAddDomain Capability = "admin.add_domain"
)

// roleCaps 角色到能力集合的静态映射
var roleCaps = map[domain.Role]map[Capability]bool{
	domain.RoleSuperAdmin: {
		CapAddAccount:    true,
		CapChangeAccount: true,
		CapDeleteAccount: true,
		CapAddAlias:      true,
		CapAddMailbox:    true,
		CapAddDomain:     true,
	},
	domain.RoleDomainAdmin: {
		CapAddAccount:    true,
		CapChangeAccount: true,
		CapDeleteAccount: true,
		CapAddAlias:      true,
		CapAddMailbox:    true,
	},
	domain.RoleSimpleUser: {},
}

// Has 判断账户是否拥有指定能力
func Has(account *domain.Account, cap Capability) bool {
	if account == nil || !account.IsActive {
		return false
	}
	caps, ok := roleCaps[account.Role]
	if !ok {
		return false
	}
	return caps[cap]
}

// HasAny 判断账户是否拥有任意一个指定能力（析取检查）
func HasAny(account *domain.Account, caps ...Capability) bool {
	for _, c := range caps {
		if Has(account, c) {
			return true
		}
	}
	return false
}
