package service

import (
	"go.uber.org/zap"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
)

// PermissionService 域管理员授权服务
type PermissionService struct {
	store storage.Store
	log   *zap.Logger
}

// NewPermissionService 创建授权服务
func NewPermissionService(store storage.Store, log *zap.Logger) *PermissionService {
	return &PermissionService{
		store: store,
		log:   log,
	}
}

// RevokeDomainAdmin 撤销账户对域的管理授权。
// 任一 ID 缺失或无法解析都返回 ErrInvalidRequest，授权集合
// 保持不变；调用者必须同时能操作该域和该账户。
func (s *PermissionService) RevokeDomainAdmin(caller *domain.Account, domainID, accountID string) error {
	if domainID == "" || accountID == "" {
		return ErrInvalidRequest
	}

	d, err := s.store.GetDomain(domainID)
	if err != nil {
		return ErrInvalidRequest
	}
	target, err := s.store.GetAccount(accountID)
	if err != nil {
		return ErrInvalidRequest
	}

	canDomain, err := canAccessDomain(s.store, caller, d.ID)
	if err != nil {
		return err
	}
	canTarget, err := canAccessAccount(s.store, caller, target)
	if err != nil {
		return err
	}
	if !canDomain || !canTarget {
		return ErrPermissionDenied
	}

	if err := s.store.RemoveDomainAdmin(d.ID, target.ID); err != nil {
		return err
	}

	s.log.Info("domain admin revoked",
		zap.String("domain", d.Name),
		zap.String("account", target.Username),
		zap.String("operator", caller.Username),
	)
	return nil
}
