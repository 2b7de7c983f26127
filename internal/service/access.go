// Package service 实现控制面板的业务逻辑层。
package service

import (
	"errors"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
)

var (
	// ErrPermissionDenied 权限不足
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidRequest 请求参数无效
	ErrInvalidRequest = errors.New("invalid request")
)

// visibleDomainIDs 返回调用者可见的域 ID 集合。
// 超级管理员返回 nil，表示不限制范围。
func visibleDomainIDs(store storage.Store, caller *domain.Account) ([]string, error) {
	if caller.IsSuperuser() {
		return nil, nil
	}
	return store.ListAdministeredDomainIDs(caller.ID)
}

// canAccessAccount 判断调用者能否操作目标账户。
// 超级管理员和本人总是可以；域管理员要求目标的邮箱
// 位于其管理的域内。
func canAccessAccount(store storage.Store, caller *domain.Account, target *domain.Account) (bool, error) {
	if caller.IsSuperuser() || caller.ID == target.ID {
		return true, nil
	}
	if caller.Role != domain.RoleDomainAdmin {
		return false, nil
	}

	mailbox, err := store.GetMailboxByAccount(target.ID)
	if err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			return false, nil
		}
		return false, err
	}

	domainIDs, err := store.ListAdministeredDomainIDs(caller.ID)
	if err != nil {
		return false, err
	}
	for _, id := range domainIDs {
		if id == mailbox.DomainID {
			return true, nil
		}
	}
	return false, nil
}

// canAccessDomain 判断调用者能否操作目标域
func canAccessDomain(store storage.Store, caller *domain.Account, domainID string) (bool, error) {
	if caller.IsSuperuser() {
		return true, nil
	}
	domainIDs, err := store.ListAdministeredDomainIDs(caller.ID)
	if err != nil {
		return false, err
	}
	for _, id := range domainIDs {
		if id == domainID {
			return true, nil
		}
	}
	return false, nil
}
