package storage

import (
	"errors"

	"mailadmin/backend/internal/domain"
)

var (
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
	// ErrMailboxNotFound 邮箱不存在
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrAliasNotFound 别名不存在
	ErrAliasNotFound = errors.New("alias not found")
	// ErrDomainNotFound 域不存在
	ErrDomainNotFound = errors.New("domain not found")
	// ErrUsernameExists 用户名已存在
	ErrUsernameExists = errors.New("username already exists")
	// ErrMailboxExists 邮箱地址在域内已存在
	ErrMailboxExists = errors.New("mailbox address already exists")
	// ErrSessionKeyNotFound 会话键不存在
	ErrSessionKeyNotFound = errors.New("session key not found")
	// ErrSettingNotFound 用户偏好不存在
	ErrSettingNotFound = errors.New("setting not found")
)

// AccountRepository 定义账户数据存取操作。
type AccountRepository interface {
	CreateAccount(account *domain.Account) error
	GetAccount(id string) (*domain.Account, error)
	GetAccountByUsername(username string) (*domain.Account, error)
	UpdateAccount(account *domain.Account) error
	DeleteAccount(id string) error
	ListAccounts() ([]domain.Account, error)
	ListAdminAccounts() ([]domain.Account, error) // 非超级管理员且不属于 SimpleUsers 组
	UpdateLastLogin(id string) error
}

// MailboxRepository 定义邮箱数据存取操作。
type MailboxRepository interface {
	SaveMailbox(mailbox *domain.Mailbox) error
	GetMailbox(id string) (*domain.Mailbox, error)
	GetMailboxByAccount(accountID string) (*domain.Mailbox, error)
	GetMailboxByAddress(address, domainID string) (*domain.Mailbox, error)
	ListMailboxes(domainIDs []string) ([]domain.Mailbox, error) // domainIDs 为 nil 时返回全部
	DeleteMailbox(id string) error
}

// QuotaRepository 定义配额用量存取操作。
// ListQuotas 的 usage 排序由各后端自行计算（SQL 后端使用方言
// 相关的计算列表达式），始终排除配额为 0 的邮箱。
type QuotaRepository interface {
	SetQuotaUsage(username string, bytes int64) error
	GetQuotaUsage(username string) (int64, error)
	DeleteQuotaUsage(username string) error
	ListQuotas(domainIDs []string, search, sortKey string, desc bool) ([]domain.QuotaListing, error)
}

// AliasRepository 定义别名数据存取操作。
// SaveAlias 同时覆盖内部邮箱目的地集合。
type AliasRepository interface {
	SaveAlias(alias *domain.Alias, mailboxIDs []string) error
	GetAlias(id string) (*domain.Alias, error)
	GetAliasByAddress(address, domainID string) (*domain.Alias, error)
	ListAliases(domainIDs []string) ([]domain.Alias, error)
	AliasMailboxIDs(aliasID string) ([]string, error)
	DeleteAlias(id string) error
	RemoveAliasMember(mailboxID string) error // 从所有别名的内部目的地中移除该邮箱
}

// DomainRepository 定义域与域管理员授权的存取操作。
type DomainRepository interface {
	SaveDomain(d *domain.Domain) error
	GetDomain(id string) (*domain.Domain, error)
	GetDomainByName(name string) (*domain.Domain, error)
	ListDomains() ([]domain.Domain, error)
	AddDomainAdmin(domainID, accountID string) error
	RemoveDomainAdmin(domainID, accountID string) error
	ListDomainAdminIDs(domainID string) ([]string, error)
	ListAdministeredDomainIDs(accountID string) ([]string, error)
	RemoveAdminFromAllDomains(accountID string) error
}

// SettingRepository 定义用户偏好存取操作。
type SettingRepository interface {
	SaveUserSetting(accountID, app, name, value string) error
	GetUserSetting(accountID, app, name string) (string, error)
	ListUserSettings(accountID string) ([]domain.UserSetting, error)
}

// RevisionRepository 定义审计修订存取操作。
type RevisionRepository interface {
	SaveRevision(rev *domain.Revision) error
	ListRevisions(entity, entityID string) ([]domain.Revision, error)
}

// SessionRepository 定义会话键值存取操作。
// 配置了 Redis 时由缓存实现，否则落到主存储。
type SessionRepository interface {
	SetSessionValue(accountID, key, value string) error
	GetSessionValue(accountID, key string) (string, error)
	DeleteSessionValue(accountID, key string) error
}

// Store 定义完整的存储接口。
type Store interface {
	AccountRepository
	MailboxRepository
	QuotaRepository
	AliasRepository
	DomainRepository
	SettingRepository
	RevisionRepository
	SessionRepository

	// WithTransaction 在单个扁平事务内执行 fn；任何一步失败
	// 都回滚整个事务，不存在部分提交。
	WithTransaction(fn func(tx Store) error) error

	Close() error
	Health() error
}
