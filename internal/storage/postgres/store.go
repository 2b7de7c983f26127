// Package postgres 使用 GORM 实现控制面板的持久化存储，
// 支持 PostgreSQL 与 MySQL 两种方言。
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
)

// Store GORM 存储实现
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定方言创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.Domain{},
		&domain.Mailbox{},
		&domain.Alias{},
		&domain.AliasMailbox{},
		&domain.DomainAdmin{},
		&domain.QuotaUsage{},
		&domain.UserSetting{},
		&domain.SessionValue{},
		&domain.Revision{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// ========== Account Repository ==========

// CreateAccount 创建账户
func (s *Store) CreateAccount(account *domain.Account) error {
	var count int64
	if err := s.db.Model(&domain.Account{}).Where("username = ?", account.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrUsernameExists
	}
	return s.db.Create(account).Error
}

// GetAccount 根据 ID 获取账户
func (s *Store) GetAccount(id string) (*domain.Account, error) {
	var account domain.Account
	if err := s.db.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByUsername 根据用户名获取账户
func (s *Store) GetAccountByUsername(username string) (*domain.Account, error) {
	var account domain.Account
	if err := s.db.Where("LOWER(username) = LOWER(?)", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateAccount 更新账户
func (s *Store) UpdateAccount(account *domain.Account) error {
	result := s.db.Model(&domain.Account{}).Where("id = ?", account.ID).Updates(map[string]interface{}{
		"username":      account.Username,
		"first_name":    account.FirstName,
		"last_name":     account.LastName,
		"password_hash": account.PasswordHash,
		"role":          account.Role,
		"is_active":     account.IsActive,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount 删除账户
func (s *Store) DeleteAccount(id string) error {
	result := s.db.Where("id = ?", id).Delete(&domain.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// ListAccounts 返回全部账户
func (s *Store) ListAccounts() ([]domain.Account, error) {
	var accounts []domain.Account
	if err := s.db.Order("username").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListAdminAccounts 返回非超级管理员且不属于 SimpleUsers 组的账户
func (s *Store) ListAdminAccounts() ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.db.
		Where("role NOT IN ?", []domain.Role{domain.RoleSuperAdmin, domain.RoleSimpleUser}).
		Order("username").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// UpdateLastLogin 更新最后登录时间
func (s *Store) UpdateLastLogin(id string) error {
	return s.db.Model(&domain.Account{}).Where("id = ?", id).
		Update("last_login_at", time.Now()).Error
}

// ========== Mailbox Repository ==========

// SaveMailbox 保存邮箱
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	var count int64
	err := s.db.Model(&domain.Mailbox{}).
		Where("address = ? AND domain_id = ? AND id <> ?", mailbox.Address, mailbox.DomainID, mailbox.ID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrMailboxExists
	}
	return s.db.Save(mailbox).Error
}

// GetMailbox 根据 ID 获取邮箱
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	if err := s.db.Where("id = ?", id).First(&mailbox).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMailboxNotFound
		}
		return nil, err
	}
	return &mailbox, nil
}

// GetMailboxByAccount 获取账户的邮箱
func (s *Store) GetMailboxByAccount(accountID string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	if err := s.db.Where("account_id = ?", accountID).First(&mailbox).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMailboxNotFound
		}
		return nil, err
	}
	return &mailbox, nil
}

// GetMailboxByAddress 按域内地址获取邮箱
func (s *Store) GetMailboxByAddress(address, domainID string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	if err := s.db.Where("address = ? AND domain_id = ?", address, domainID).First(&mailbox).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMailboxNotFound
		}
		return nil, err
	}
	return &mailbox, nil
}

// ListMailboxes 返回指定域集合下的邮箱，domainIDs 为 nil 时返回全部
func (s *Store) ListMailboxes(domainIDs []string) ([]domain.Mailbox, error) {
	query := s.db.Order("address")
	if domainIDs != nil {
		query = query.Where("domain_id IN ?", domainIDs)
	}
	var mailboxes []domain.Mailbox
	if err := query.Find(&mailboxes).Error; err != nil {
		return nil, err
	}
	return mailboxes, nil
}

// DeleteMailbox 删除邮箱
func (s *Store) DeleteMailbox(id string) error {
	result := s.db.Where("id = ?", id).Delete(&domain.Mailbox{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMailboxNotFound
	}
	return nil
}

// ========== Quota Repository ==========

// SetQuotaUsage 写入邮箱的已用字节数
func (s *Store) SetQuotaUsage(username string, bytes int64) error {
	usage := domain.QuotaUsage{Username: username, Bytes: bytes}
	return s.db.Save(&usage).Error
}

// GetQuotaUsage 读取邮箱的已用字节数，缺省为 0
func (s *Store) GetQuotaUsage(username string) (int64, error) {
	var usage domain.QuotaUsage
	if err := s.db.Where("username = ?", username).First(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return usage.Bytes, nil
}

// DeleteQuotaUsage 删除用量记录
func (s *Store) DeleteQuotaUsage(username string) error {
	return s.db.Where("username = ?", username).Delete(&domain.QuotaUsage{}).Error
}

// ListQuotas 返回配额列表，配额为 0 的邮箱始终排除
func (s *Store) ListQuotas(domainIDs []string, search, sortKey string, desc bool) ([]domain.QuotaListing, error) {
	fullAddr, usage := quotaExprs(s.db.Dialector.Name())

	query := s.db.Table("mailboxes").
		Select(fmt.Sprintf(
			"%s AS address, mailboxes.quota AS quota, COALESCE(quota_usages.bytes, 0) AS bytes, %s AS usage_pct",
			fullAddr, usage)).
		Joins("JOIN domains ON domains.id = mailboxes.domain_id").
		Joins(fmt.Sprintf("LEFT JOIN quota_usages ON quota_usages.username = %s", fullAddr)).
		Where("mailboxes.quota > 0")

	if domainIDs != nil {
		query = query.Where("mailboxes.domain_id IN ?", domainIDs)
	}
	if search != "" {
		query = query.Where(fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", fullAddr), "%"+search+"%")
	}

	order := quotaOrderColumn(sortKey, fullAddr, usage)
	if desc {
		order += " DESC"
	}

	var rows []domain.QuotaListing
	if err := query.Order(order).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ========== Alias Repository ==========

// SaveAlias 保存别名并覆盖内部目的地集合
func (s *Store) SaveAlias(alias *domain.Alias, mailboxIDs []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(alias).Error; err != nil {
			return err
		}
		if err := tx.Where("alias_id = ?", alias.ID).Delete(&domain.AliasMailbox{}).Error; err != nil {
			return err
		}
		for _, mailboxID := range mailboxIDs {
			member := domain.AliasMailbox{AliasID: alias.ID, MailboxID: mailboxID}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetAlias 根据 ID 获取别名
func (s *Store) GetAlias(id string) (*domain.Alias, error) {
	var alias domain.Alias
	if err := s.db.Where("id = ?", id).First(&alias).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAliasNotFound
		}
		return nil, err
	}
	return &alias, nil
}

// GetAliasByAddress 按域内地址获取别名
func (s *Store) GetAliasByAddress(address, domainID string) (*domain.Alias, error) {
	var alias domain.Alias
	if err := s.db.Where("address = ? AND domain_id = ?", address, domainID).First(&alias).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAliasNotFound
		}
		return nil, err
	}
	return &alias, nil
}

// ListAliases 返回指定域集合下的别名，domainIDs 为 nil 时返回全部
func (s *Store) ListAliases(domainIDs []string) ([]domain.Alias, error) {
	query := s.db.Order("address")
	if domainIDs != nil {
		query = query.Where("domain_id IN ?", domainIDs)
	}
	var aliases []domain.Alias
	if err := query.Find(&aliases).Error; err != nil {
		return nil, err
	}
	return aliases, nil
}

// AliasMailboxIDs 返回别名的内部目的地邮箱 ID
func (s *Store) AliasMailboxIDs(aliasID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&domain.AliasMailbox{}).
		Where("alias_id = ?", aliasID).
		Pluck("mailbox_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteAlias 删除别名及其内部目的地关联
func (s *Store) DeleteAlias(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("alias_id = ?", id).Delete(&domain.AliasMailbox{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&domain.Alias{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrAliasNotFound
		}
		return nil
	})
}

// RemoveAliasMember 从所有别名的内部目的地中移除该邮箱
func (s *Store) RemoveAliasMember(mailboxID string) error {
	return s.db.Where("mailbox_id = ?", mailboxID).Delete(&domain.AliasMailbox{}).Error
}

// ========== Domain Repository ==========

// SaveDomain 保存域
func (s *Store) SaveDomain(d *domain.Domain) error {
	return s.db.Save(d).Error
}

// GetDomain 根据 ID 获取域
func (s *Store) GetDomain(id string) (*domain.Domain, error) {
	var d domain.Domain
	if err := s.db.Where("id = ?", id).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrDomainNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetDomainByName 根据域名获取域
func (s *Store) GetDomainByName(name string) (*domain.Domain, error) {
	var d domain.Domain
	if err := s.db.Where("LOWER(name) = LOWER(?)", name).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrDomainNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDomains 返回全部域
func (s *Store) ListDomains() ([]domain.Domain, error) {
	var domains []domain.Domain
	if err := s.db.Order("name").Find(&domains).Error; err != nil {
		return nil, err
	}
	return domains, nil
}

// AddDomainAdmin 授予账户对域的管理权，重复授予幂等
func (s *Store) AddDomainAdmin(domainID, accountID string) error {
	var count int64
	err := s.db.Model(&domain.DomainAdmin{}).
		Where("domain_id = ? AND account_id = ?", domainID, accountID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	admin := domain.DomainAdmin{DomainID: domainID, AccountID: accountID}
	return s.db.Create(&admin).Error
}

// RemoveDomainAdmin 撤销账户对域的管理权
func (s *Store) RemoveDomainAdmin(domainID, accountID string) error {
	return s.db.Where("domain_id = ? AND account_id = ?", domainID, accountID).
		Delete(&domain.DomainAdmin{}).Error
}

// ListDomainAdminIDs 返回域的管理员账户 ID
func (s *Store) ListDomainAdminIDs(domainID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&domain.DomainAdmin{}).
		Where("domain_id = ?", domainID).
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListAdministeredDomainIDs 返回账户可管理的域 ID
func (s *Store) ListAdministeredDomainIDs(accountID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&domain.DomainAdmin{}).
		Where("account_id = ?", accountID).
		Order("domain_id").
		Pluck("domain_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RemoveAdminFromAllDomains 从所有域的管理员集合中移除账户
func (s *Store) RemoveAdminFromAllDomains(accountID string) error {
	return s.db.Where("account_id = ?", accountID).Delete(&domain.DomainAdmin{}).Error
}

// ========== Setting Repository ==========

// SaveUserSetting 保存用户偏好值
func (s *Store) SaveUserSetting(accountID, app, name, value string) error {
	var setting domain.UserSetting
	err := s.db.Where("account_id = ? AND app = ? AND name = ?", accountID, app, name).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = domain.UserSetting{
			ID:        uuid.New().String(),
			AccountID: accountID,
			App:       app,
			Name:      name,
			Value:     value,
		}
		return s.db.Create(&setting).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&setting).Update("value", value).Error
}

// GetUserSetting 读取用户偏好值
func (s *Store) GetUserSetting(accountID, app, name string) (string, error) {
	var setting domain.UserSetting
	err := s.db.Where("account_id = ? AND app = ? AND name = ?", accountID, app, name).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", storage.ErrSettingNotFound
		}
		return "", err
	}
	return setting.Value, nil
}

// ListUserSettings 返回账户的全部偏好
func (s *Store) ListUserSettings(accountID string) ([]domain.UserSetting, error) {
	var settings []domain.UserSetting
	err := s.db.Where("account_id = ?", accountID).
		Order("app, name").
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// ========== Revision Repository ==========

// SaveRevision 写入审计修订记录
func (s *Store) SaveRevision(rev *domain.Revision) error {
	return s.db.Create(rev).Error
}

// ListRevisions 按实体查询修订记录
func (s *Store) ListRevisions(entity, entityID string) ([]domain.Revision, error) {
	var revisions []domain.Revision
	err := s.db.Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at").
		Find(&revisions).Error
	if err != nil {
		return nil, err
	}
	return revisions, nil
}

// ========== Session Repository ==========

// SetSessionValue 写入会话键值
func (s *Store) SetSessionValue(accountID, key, value string) error {
	sv := domain.SessionValue{AccountID: accountID, Key: key, Value: value}
	return s.db.Save(&sv).Error
}

// GetSessionValue 读取会话键值
func (s *Store) GetSessionValue(accountID, key string) (string, error) {
	var sv domain.SessionValue
	err := s.db.Where("account_id = ? AND session_key = ?", accountID, key).First(&sv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", storage.ErrSessionKeyNotFound
		}
		return "", err
	}
	return sv.Value, nil
}

// DeleteSessionValue 删除会话键值
func (s *Store) DeleteSessionValue(accountID, key string) error {
	return s.db.Where("account_id = ? AND session_key = ?", accountID, key).
		Delete(&domain.SessionValue{}).Error
}

// ========== 工具方法 ==========

// WithTransaction 在单个数据库事务内执行 fn，失败时整体回滚
func (s *Store) WithTransaction(fn func(tx storage.Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 健康检查
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
