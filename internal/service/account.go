package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
)

// SessionKeyAccountWizard 账户创建向导状态的会话键
const SessionKeyAccountWizard = "account_wizard"

var (
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAddressTaken 邮箱地址在域内已被占用
	ErrAddressTaken = errors.New("address already in use")
	// ErrUnknownDomain 域不存在
	ErrUnknownDomain = errors.New("unknown domain")
	// ErrWizardIncomplete 向导前置步骤未完成
	ErrWizardIncomplete = errors.New("wizard step out of order")
	// ErrOwnAccount 不能删除自己的账户
	ErrOwnAccount = errors.New("cannot delete own account")
)

// GeneralForm 向导第一步：账户基本信息
type GeneralForm struct {
	Username  string `json:"username" form:"username"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Password  string `json:"password" form:"password"`
	Role      string `json:"role" form:"role"`
}

// MailForm 向导第二步：邮箱设置
type MailForm struct {
	Email string `json:"email" form:"email"`
	Quota int    `json:"quota" form:"quota"` // MB，0 表示无限
}

// PermsForm 向导第三步：域管理授权
type PermsForm struct {
	Domains []string `json:"domains" form:"domains"` // 域名列表
}

// wizardState 会话中保存的向导进度
type wizardState struct {
	General *GeneralForm `json:"general,omitempty"`
	Mail    *MailForm    `json:"mail,omitempty"`
}

// FormContributor 账户编辑表单的注册协作者。
// 其他模块（如 webmail 设置）可以向编辑包追加自己的子表单，
// 校验与保存在同一个事务里执行，按注册顺序。
type FormContributor interface {
	Name() string
	Validate(target *domain.Account, values map[string]string) error
	Save(tx storage.Store, target *domain.Account, values map[string]string) error
}

// AccountService 账户生命周期服务
type AccountService struct {
	store        storage.Store
	sessions     storage.SessionRepository
	maildir      *MaildirStore
	contributors []FormContributor
	log          *zap.Logger
}

// NewAccountService 创建账户服务
func NewAccountService(store storage.Store, sessions storage.SessionRepository, maildir *MaildirStore, log *zap.Logger) *AccountService {
	return &AccountService{
		store:    store,
		sessions: sessions,
		maildir:  maildir,
		log:      log,
	}
}

// RegisterContributor 注册编辑表单协作者，顺序即注册顺序
func (s *AccountService) RegisterContributor(c FormContributor) {
	s.contributors = append(s.contributors, c)
}

// ========== 创建向导 ==========

// WizardGeneral 校验并暂存向导第一步
func (s *AccountService) WizardGeneral(caller *domain.Account, form *GeneralForm) error {
	if err := s.validateGeneral(caller, form, ""); err != nil {
		return err
	}

	state, _ := s.loadWizard(caller)
	state.General = form
	state.Mail = nil
	return s.saveWizard(caller, state)
}

// WizardMail 校验并暂存向导第二步
func (s *AccountService) WizardMail(caller *domain.Account, form *MailForm) error {
	state, err := s.loadWizard(caller)
	if err != nil || state.General == nil {
		return ErrWizardIncomplete
	}

	if _, _, err := s.validateMail(caller, form, ""); err != nil {
		return err
	}

	state.Mail = form
	return s.saveWizard(caller, state)
}

// WizardFinalize 校验第三步并在单个事务内落地账户、邮箱、
// 配额记录与域管理授权，随后创建邮件目录并清除向导状态。
func (s *AccountService) WizardFinalize(caller *domain.Account, form *PermsForm) (*domain.Account, error) {
	state, err := s.loadWizard(caller)
	if err != nil || state.General == nil || state.Mail == nil {
		return nil, ErrWizardIncomplete
	}

	// 提交前重新校验：向导跨请求，中途可能发生冲突
	if err := s.validateGeneral(caller, state.General, ""); err != nil {
		return nil, err
	}
	localPart, mailDomain, err := s.validateMail(caller, state.Mail, "")
	if err != nil {
		return nil, err
	}

	grantDomains, err := s.resolvePermDomains(caller, state.General.Role, form)
	if err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(state.General.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Username:     strings.ToLower(state.General.Username),
		FirstName:    state.General.FirstName,
		LastName:     state.General.LastName,
		PasswordHash: passwordHash,
		Role:         domain.Role(state.General.Role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	mailbox := &domain.Mailbox{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		DomainID:  mailDomain.ID,
		Address:   localPart,
		Quota:     state.Mail.Quota,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.WithTransaction(func(tx storage.Store) error {
		if err := tx.CreateAccount(account); err != nil {
			return err
		}
		if err := tx.SaveMailbox(mailbox); err != nil {
			return err
		}
		if err := tx.SetQuotaUsage(mailbox.FullAddress(mailDomain.Name), 0); err != nil {
			return err
		}
		for _, domainID := range grantDomains {
			if err := tx.AddDomainAdmin(domainID, account.ID); err != nil {
				return err
			}
		}
		return s.writeRevision(tx, caller, domain.RevisionCreate, "account", account)
	})
	if err != nil {
		return nil, err
	}

	if err := s.maildir.EnsureDir(mailDomain.Name, localPart); err != nil {
		s.log.Error("failed to create maildir",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	if err := s.sessions.DeleteSessionValue(caller.ID, SessionKeyAccountWizard); err != nil {
		s.log.Warn("failed to clear wizard state", zap.Error(err))
	}

	return account, nil
}

// ========== 编辑 ==========

// EditBundle 编辑表单包：预填的子表单集合
type EditBundle struct {
	General      GeneralForm
	Mail         *MailForm // 无邮箱的账户为 nil
	Perms        PermsForm
	Contributors []string // 协作者子表单名，按注册顺序
}

// GetEditBundle 返回目标账户的编辑表单包
func (s *AccountService) GetEditBundle(caller *domain.Account, accountID string) (*EditBundle, error) {
	target, err := s.accessibleAccount(caller, accountID)
	if err != nil {
		return nil, err
	}

	bundle := &EditBundle{
		General: GeneralForm{
			Username:  target.Username,
			FirstName: target.FirstName,
			LastName:  target.LastName,
			Role:      string(target.Role),
		},
	}

	if mailbox, err := s.store.GetMailboxByAccount(target.ID); err == nil {
		d, err := s.store.GetDomain(mailbox.DomainID)
		if err != nil {
			return nil, err
		}
		bundle.Mail = &MailForm{
			Email: mailbox.FullAddress(d.Name),
			Quota: mailbox.Quota,
		}
	}

	domainIDs, err := s.store.ListAdministeredDomainIDs(target.ID)
	if err != nil {
		return nil, err
	}
	for _, domainID := range domainIDs {
		d, err := s.store.GetDomain(domainID)
		if err != nil {
			continue
		}
		bundle.Perms.Domains = append(bundle.Perms.Domains, d.Name)
	}

	for _, c := range s.contributors {
		bundle.Contributors = append(bundle.Contributors, c.Name())
	}

	return bundle, nil
}

// EditInput 账户编辑输入
type EditInput struct {
	General *GeneralForm
	Mail    *MailForm
	Perms   *PermsForm
	Extra   map[string]string // 协作者子表单的键值
}

// Edit 校验所有子表单后在单个扁平事务内保存全部变更。
// 任何一步失败都不会留下部分提交。
func (s *AccountService) Edit(caller *domain.Account, accountID string, input EditInput) error {
	target, err := s.accessibleAccount(caller, accountID)
	if err != nil {
		return err
	}
	if input.General == nil {
		return ErrInvalidRequest
	}

	if err := s.validateGeneral(caller, input.General, target.ID); err != nil {
		return err
	}

	var mailbox *domain.Mailbox
	var mailDomain *domain.Domain
	var localPart string
	if input.Mail != nil {
		mailbox, err = s.store.GetMailboxByAccount(target.ID)
		if err != nil {
			return ErrInvalidRequest
		}
		localPart, mailDomain, err = s.validateMail(caller, input.Mail, mailbox.ID)
		if err != nil {
			return err
		}
	}

	var grantDomains []string
	if input.Perms != nil {
		grantDomains, err = s.resolvePermDomains(caller, input.General.Role, input.Perms)
		if err != nil {
			return err
		}
	}

	for _, c := range s.contributors {
		if err := c.Validate(target, input.Extra); err != nil {
			return err
		}
	}

	target.Username = strings.ToLower(input.General.Username)
	target.FirstName = input.General.FirstName
	target.LastName = input.General.LastName
	target.Role = domain.Role(input.General.Role)
	if input.General.Password != "" {
		if err := auth.ValidatePassword(input.General.Password); err != nil {
			return err
		}
		hash, err := auth.HashPassword(input.General.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		target.PasswordHash = hash
	}
	target.UpdatedAt = time.Now()

	return s.store.WithTransaction(func(tx storage.Store) error {
		if err := tx.UpdateAccount(target); err != nil {
			return err
		}

		if mailbox != nil {
			mailbox.Address = localPart
			mailbox.DomainID = mailDomain.ID
			mailbox.Quota = input.Mail.Quota
			mailbox.UpdatedAt = time.Now()
			if err := tx.SaveMailbox(mailbox); err != nil {
				return err
			}
		}

		if input.Perms != nil {
			if err := tx.RemoveAdminFromAllDomains(target.ID); err != nil {
				return err
			}
			for _, domainID := range grantDomains {
				if err := tx.AddDomainAdmin(domainID, target.ID); err != nil {
					return err
				}
			}
		}

		for _, c := range s.contributors {
			if err := c.Save(tx, target, input.Extra); err != nil {
				return err
			}
		}

		return s.writeRevision(tx, caller, domain.RevisionUpdate, "account", target)
	})
}

// ========== 删除 ==========

// Delete 删除账户及其邮箱、配额记录、别名成员关系与授权。
// keepDir 为 false 时同时删除磁盘上的邮件目录。
func (s *AccountService) Delete(caller *domain.Account, accountID string, keepDir bool) error {
	if caller.ID == accountID {
		return ErrOwnAccount
	}
	target, err := s.accessibleAccount(caller, accountID)
	if err != nil {
		return err
	}

	var domainName, localPart string
	mailbox, err := s.store.GetMailboxByAccount(target.ID)
	if err != nil && !errors.Is(err, storage.ErrMailboxNotFound) {
		return err
	}
	if mailbox != nil {
		d, err := s.store.GetDomain(mailbox.DomainID)
		if err != nil {
			return err
		}
		domainName = d.Name
		localPart = mailbox.Address
	}

	err = s.store.WithTransaction(func(tx storage.Store) error {
		if mailbox != nil {
			if err := tx.RemoveAliasMember(mailbox.ID); err != nil {
				return err
			}
			if err := tx.DeleteQuotaUsage(mailbox.FullAddress(domainName)); err != nil {
				return err
			}
			if err := tx.DeleteMailbox(mailbox.ID); err != nil {
				return err
			}
		}
		if err := tx.RemoveAdminFromAllDomains(target.ID); err != nil {
			return err
		}
		if err := tx.DeleteAccount(target.ID); err != nil {
			return err
		}
		return s.writeRevision(tx, caller, domain.RevisionDelete, "account", target)
	})
	if err != nil {
		return err
	}

	if !keepDir && mailbox != nil {
		if err := s.maildir.RemoveDir(domainName, localPart); err != nil {
			s.log.Error("failed to remove maildir",
				zap.String("account_id", target.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// ListAdminUsernames 返回非超级管理员的管理类账户的用户名
func (s *AccountService) ListAdminUsernames() ([]string, error) {
	accounts, err := s.store.ListAdminAccounts()
	if err != nil {
		return nil, err
	}
	usernames := make([]string, 0, len(accounts))
	for _, account := range accounts {
		usernames = append(usernames, account.Username)
	}
	return usernames, nil
}

// ========== 内部方法 ==========

func (s *AccountService) accessibleAccount(caller *domain.Account, accountID string) (*domain.Account, error) {
	target, err := s.store.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	ok, err := canAccessAccount(s.store, caller, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermissionDenied
	}
	return target, nil
}

// validateGeneral 校验基本信息。excludeID 非空时忽略目标自身
// 的用户名占用（编辑场景）。
func (s *AccountService) validateGeneral(caller *domain.Account, form *GeneralForm, excludeID string) error {
	if form.Username == "" {
		return ErrInvalidRequest
	}
	if !domain.ValidRole(domain.Role(form.Role)) {
		return ErrInvalidRequest
	}
	// 域管理员只能创建普通用户
	if !caller.IsSuperuser() && domain.Role(form.Role) != domain.RoleSimpleUser {
		return ErrPermissionDenied
	}
	if excludeID == "" {
		if err := auth.ValidatePassword(form.Password); err != nil {
			return err
		}
	}

	existing, err := s.store.GetAccountByUsername(strings.ToLower(form.Username))
	if err == nil && existing.ID != excludeID {
		return ErrUsernameTaken
	}
	return nil
}

// validateMail 校验邮箱设置并返回解析出的本地部分与域。
// excludeMailboxID 非空时忽略该邮箱自身的地址占用。
func (s *AccountService) validateMail(caller *domain.Account, form *MailForm, excludeMailboxID string) (string, *domain.Domain, error) {
	localPart, domainName, ok := splitAddress(form.Email)
	if !ok {
		return "", nil, ErrInvalidRequest
	}
	if form.Quota < 0 {
		return "", nil, ErrInvalidRequest
	}

	d, err := s.store.GetDomainByName(domainName)
	if err != nil {
		return "", nil, ErrUnknownDomain
	}

	canAccess, err := canAccessDomain(s.store, caller, d.ID)
	if err != nil {
		return "", nil, err
	}
	if !canAccess {
		return "", nil, ErrPermissionDenied
	}

	existing, err := s.store.GetMailboxByAddress(localPart, d.ID)
	if err == nil && existing.ID != excludeMailboxID {
		return "", nil, ErrAddressTaken
	}

	return localPart, d, nil
}

// resolvePermDomains 解析授权域列表。仅域管理员角色接受授权。
func (s *AccountService) resolvePermDomains(caller *domain.Account, role string, form *PermsForm) ([]string, error) {
	if form == nil || len(form.Domains) == 0 {
		return nil, nil
	}
	if domain.Role(role) != domain.RoleDomainAdmin {
		return nil, ErrInvalidRequest
	}

	ids := make([]string, 0, len(form.Domains))
	for _, name := range form.Domains {
		d, err := s.store.GetDomainByName(name)
		if err != nil {
			return nil, ErrUnknownDomain
		}
		canAccess, err := canAccessDomain(s.store, caller, d.ID)
		if err != nil {
			return nil, err
		}
		if !canAccess {
			return nil, ErrPermissionDenied
		}
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *AccountService) loadWizard(caller *domain.Account) (*wizardState, error) {
	state := &wizardState{}
	raw, err := s.sessions.GetSessionValue(caller.ID, SessionKeyAccountWizard)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return &wizardState{}, err
	}
	return state, nil
}

func (s *AccountService) saveWizard(caller *domain.Account, state *wizardState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard state: %w", err)
	}
	return s.sessions.SetSessionValue(caller.ID, SessionKeyAccountWizard, string(raw))
}

func (s *AccountService) writeRevision(tx storage.Store, operator *domain.Account, action, entity string, payload interface{}) error {
	snapshot, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal revision snapshot: %w", err)
	}

	var entityID string
	if account, ok := payload.(*domain.Account); ok {
		entityID = account.ID
	}

	return tx.SaveRevision(&domain.Revision{
		ID:         uuid.New().String(),
		OperatorID: operator.ID,
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		Snapshot:   string(snapshot),
		CreatedAt:  time.Now(),
	})
}

// splitAddress 拆分完整邮箱地址为本地部分和域名
func splitAddress(email string) (localPart, domainName string, ok bool) {
	email = strings.TrimSpace(strings.ToLower(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return email[:at], email[at+1:], true
}
