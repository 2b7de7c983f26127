package domain

import (
	"strings"
	"time"
)

// Role 账户所属的权限组
type Role string

const (
	// RoleSuperAdmin 超级管理员，拥有全部权限
	RoleSuperAdmin Role = "SuperAdmins"
	// RoleDomainAdmin 域管理员，管理被授权域下的身份
	RoleDomainAdmin Role = "DomainAdmins"
	// RoleSimpleUser 普通用户，仅能管理自己的偏好设置
	RoleSimpleUser Role = "SimpleUsers"
)

// ValidRole 判断角色取值是否合法
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleDomainAdmin, RoleSimpleUser:
		return true
	}
	return false
}

// Account 表示控制面板中的用户账户
type Account struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username     string     `json:"username" gorm:"uniqueIndex;type:varchar(255);not null"`
	FirstName    string     `json:"firstName,omitempty" gorm:"type:varchar(100)"`
	LastName     string     `json:"lastName,omitempty" gorm:"type:varchar(100)"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255)"` // 不返回给前端
	Role         Role       `json:"role" gorm:"type:varchar(20);default:'SimpleUsers';index"`
	IsActive     bool       `json:"isActive" gorm:"default:true"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// IsSuperuser 判断账户是否为超级管理员
func (a *Account) IsSuperuser() bool {
	return a.Role == RoleSuperAdmin
}

// FullName 返回账户的显示名称，无姓名时回退到用户名
func (a *Account) FullName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Username
	}
	return name
}

// GroupTag 返回账户权限组的小写标签，用于身份列表的分组过滤
func (a *Account) GroupTag() string {
	return strings.ToLower(string(a.Role))
}
