// Package memory 使用内存保存控制面板数据，主要用于开发与测试。
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
)

// Store 内存存储实现
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	byUsername   map[string]string // username -> accountID
	mailboxes    map[string]*domain.Mailbox
	byAccount    map[string]string // accountID -> mailboxID
	domains      map[string]*domain.Domain
	byDomainName map[string]string // name -> domainID
	aliases      map[string]*domain.Alias
	aliasMembers map[string][]string // aliasID -> 内部目的地邮箱ID（保持顺序）
	quotas       map[string]int64    // address@domain -> bytes
	domainAdmins map[string][]string // domainID -> 管理员账户ID
	settings     map[string]*domain.UserSetting
	revisions    []domain.Revision
	sessions     map[string]map[string]string // accountID -> key -> value
}

// NewStore 创建内存存储实例
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		byUsername:   make(map[string]string),
		mailboxes:    make(map[string]*domain.Mailbox),
		byAccount:    make(map[string]string),
		domains:      make(map[string]*domain.Domain),
		byDomainName: make(map[string]string),
		aliases:      make(map[string]*domain.Alias),
		aliasMembers: make(map[string][]string),
		quotas:       make(map[string]int64),
		domainAdmins: make(map[string][]string),
		settings:     make(map[string]*domain.UserSetting),
		sessions:     make(map[string]map[string]string),
	}
}

// ========== Account Repository ==========

// CreateAccount 创建账户
func (s *Store) CreateAccount(account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[strings.ToLower(account.Username)]; ok {
		return storage.ErrUsernameExists
	}
	clone := *account
	s.accounts[account.ID] = &clone
	s.byUsername[strings.ToLower(account.Username)] = account.ID
	return nil
}

// GetAccount 根据 ID 获取账户
func (s *Store) GetAccount(id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

// GetAccountByUsername 根据用户名获取账户
func (s *Store) GetAccountByUsername(username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *s.accounts[id]
	return &clone, nil
}

// UpdateAccount 更新账户
func (s *Store) UpdateAccount(account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.accounts[account.ID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	if old.Username != account.Username {
		delete(s.byUsername, strings.ToLower(old.Username))
		s.byUsername[strings.ToLower(account.Username)] = account.ID
	}
	clone := *account
	s.accounts[account.ID] = &clone
	return nil
}

// DeleteAccount 删除账户
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	delete(s.byUsername, strings.ToLower(account.Username))
	delete(s.accounts, id)
	return nil
}

// ListAccounts 返回全部账户
func (s *Store) ListAccounts() ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// ListAdminAccounts 返回非超级管理员且不属于 SimpleUsers 组的账户
func (s *Store) ListAdminAccounts() ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0)
	for _, a := range s.accounts {
		if a.IsSuperuser() || a.Role == domain.RoleSimpleUser {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// UpdateLastLogin 更新最后登录时间
func (s *Store) UpdateLastLogin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	now := time.Now()
	account.LastLoginAt = &now
	return nil
}

// ========== Mailbox Repository ==========

// SaveMailbox 保存邮箱
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mb := range s.mailboxes {
		if mb.ID != mailbox.ID && mb.DomainID == mailbox.DomainID && mb.Address == mailbox.Address {
			return storage.ErrMailboxExists
		}
	}
	clone := *mailbox
	s.mailboxes[mailbox.ID] = &clone
	s.byAccount[mailbox.AccountID] = mailbox.ID
	return nil
}

// GetMailbox 根据 ID 获取邮箱
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mb, ok := s.mailboxes[id]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	clone := *mb
	return &clone, nil
}

// GetMailboxByAccount 获取账户的邮箱
func (s *Store) GetMailboxByAccount(accountID string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAccount[accountID]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	clone := *s.mailboxes[id]
	return &clone, nil
}

// GetMailboxByAddress 按域内地址获取邮箱
func (s *Store) GetMailboxByAddress(address, domainID string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mb := range s.mailboxes {
		if mb.DomainID == domainID && mb.Address == address {
			clone := *mb
			return &clone, nil
		}
	}
	return nil, storage.ErrMailboxNotFound
}

// ListMailboxes 返回指定域集合下的邮箱，domainIDs 为 nil 时返回全部
func (s *Store) ListMailboxes(domainIDs []string) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Mailbox, 0)
	for _, mb := range s.mailboxes {
		if domainIDs != nil && !containsString(domainIDs, mb.DomainID) {
			continue
		}
		out = append(out, *mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// DeleteMailbox 删除邮箱
func (s *Store) DeleteMailbox(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mb, ok := s.mailboxes[id]
	if !ok {
		return storage.ErrMailboxNotFound
	}
	delete(s.byAccount, mb.AccountID)
	delete(s.mailboxes, id)
	return nil
}

// ========== Quota Repository ==========

// SetQuotaUsage 写入邮箱的已用字节数
func (s *Store) SetQuotaUsage(username string, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotas[username] = bytes
	return nil
}

// GetQuotaUsage 读取邮箱的已用字节数，缺省为 0
func (s *Store) GetQuotaUsage(username string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quotas[username], nil
}

// DeleteQuotaUsage 删除用量记录
func (s *Store) DeleteQuotaUsage(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotas, username)
	return nil
}

// ListQuotas 返回配额列表。配额为 0 的邮箱始终排除；
// usage 按 bytes / (quota * 1048576) * 100 在内存中计算。
func (s *Store) ListQuotas(domainIDs []string, search, sortKey string, desc bool) ([]domain.QuotaListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuotaListing, 0)
	for _, mb := range s.mailboxes {
		if mb.Quota == 0 {
			continue
		}
		if domainIDs != nil && !containsString(domainIDs, mb.DomainID) {
			continue
		}
		dom, ok := s.domains[mb.DomainID]
		if !ok {
			continue
		}
		full := mb.FullAddress(dom.Name)
		if search != "" && !strings.Contains(strings.ToLower(full), strings.ToLower(search)) {
			continue
		}
		bytes := s.quotas[full]
		out = append(out, domain.QuotaListing{
			Address: full,
			Quota:   mb.Quota,
			Bytes:   bytes,
			Usage:   float64(bytes) / float64(int64(mb.Quota)*domain.QuotaBytesPerMB) * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		var less bool
		switch sortKey {
		case "quota":
			less = out[i].Quota < out[j].Quota
		case "quota_value__bytes":
			less = out[i].Bytes < out[j].Bytes
		case "quota_usage":
			less = out[i].Usage < out[j].Usage
		default: // address
			less = out[i].Address < out[j].Address
		}
		if desc {
			return !less && !quotaRowEqual(out[i], out[j], sortKey)
		}
		return less
	})
	return out, nil
}

func quotaRowEqual(a, b domain.QuotaListing, sortKey string) bool {
	switch sortKey {
	case "quota":
		return a.Quota == b.Quota
	case "quota_value__bytes":
		return a.Bytes == b.Bytes
	case "quota_usage":
		return a.Usage == b.Usage
	default:
		return a.Address == b.Address
	}
}

// ========== Alias Repository ==========

// SaveAlias 保存别名并覆盖内部目的地集合
func (s *Store) SaveAlias(alias *domain.Alias, mailboxIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *alias
	s.aliases[alias.ID] = &clone
	members := make([]string, len(mailboxIDs))
	copy(members, mailboxIDs)
	s.aliasMembers[alias.ID] = members
	return nil
}

// GetAlias 根据 ID 获取别名
func (s *Store) GetAlias(id string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alias, ok := s.aliases[id]
	if !ok {
		return nil, storage.ErrAliasNotFound
	}
	clone := *alias
	return &clone, nil
}

// GetAliasByAddress 按域内地址获取别名
func (s *Store) GetAliasByAddress(address, domainID string) (*domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, alias := range s.aliases {
		if alias.DomainID == domainID && alias.Address == address {
			clone := *alias
			return &clone, nil
		}
	}
	return nil, storage.ErrAliasNotFound
}

// ListAliases 返回指定域集合下的别名，domainIDs 为 nil 时返回全部
func (s *Store) ListAliases(domainIDs []string) ([]domain.Alias, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Alias, 0)
	for _, alias := range s.aliases {
		if domainIDs != nil && !containsString(domainIDs, alias.DomainID) {
			continue
		}
		out = append(out, *alias)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// AliasMailboxIDs 返回别名的内部目的地邮箱 ID
func (s *Store) AliasMailboxIDs(aliasID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.aliasMembers[aliasID]
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}

// DeleteAlias 删除别名及其内部目的地关联
func (s *Store) DeleteAlias(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[id]; !ok {
		return storage.ErrAliasNotFound
	}
	delete(s.aliases, id)
	delete(s.aliasMembers, id)
	return nil
}

// RemoveAliasMember 从所有别名的内部目的地中移除该邮箱
func (s *Store) RemoveAliasMember(mailboxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for aliasID, members := range s.aliasMembers {
		kept := members[:0]
		for _, id := range members {
			if id != mailboxID {
				kept = append(kept, id)
			}
		}
		s.aliasMembers[aliasID] = kept
	}
	return nil
}

// ========== Domain Repository ==========

// SaveDomain 保存域
func (s *Store) SaveDomain(d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.domains[d.ID]; ok && old.Name != d.Name {
		delete(s.byDomainName, strings.ToLower(old.Name))
	}
	clone := *d
	s.domains[d.ID] = &clone
	s.byDomainName[strings.ToLower(d.Name)] = d.ID
	return nil
}

// GetDomain 根据 ID 获取域
func (s *Store) GetDomain(id string) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.domains[id]
	if !ok {
		return nil, storage.ErrDomainNotFound
	}
	clone := *d
	return &clone, nil
}

// GetDomainByName 根据域名获取域
func (s *Store) GetDomainByName(name string) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDomainName[strings.ToLower(name)]
	if !ok {
		return nil, storage.ErrDomainNotFound
	}
	clone := *s.domains[id]
	return &clone, nil
}

// ListDomains 返回全部域
func (s *Store) ListDomains() ([]domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AddDomainAdmin 授予账户对域的管理权
func (s *Store) AddDomainAdmin(domainID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.domains[domainID]; !ok {
		return storage.ErrDomainNotFound
	}
	if containsString(s.domainAdmins[domainID], accountID) {
		return nil
	}
	s.domainAdmins[domainID] = append(s.domainAdmins[domainID], accountID)
	return nil
}

// RemoveDomainAdmin 撤销账户对域的管理权
func (s *Store) RemoveDomainAdmin(domainID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	admins := s.domainAdmins[domainID]
	kept := admins[:0]
	for _, id := range admins {
		if id != accountID {
			kept = append(kept, id)
		}
	}
	s.domainAdmins[domainID] = kept
	return nil
}

// ListDomainAdminIDs 返回域的管理员账户 ID
func (s *Store) ListDomainAdminIDs(domainID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admins := s.domainAdmins[domainID]
	out := make([]string, len(admins))
	copy(out, admins)
	return out, nil
}

// ListAdministeredDomainIDs 返回账户可管理的域 ID
func (s *Store) ListAdministeredDomainIDs(accountID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for domainID, admins := range s.domainAdmins {
		if containsString(admins, accountID) {
			out = append(out, domainID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// RemoveAdminFromAllDomains 从所有域的管理员集合中移除账户
func (s *Store) RemoveAdminFromAllDomains(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for domainID, admins := range s.domainAdmins {
		kept := admins[:0]
		for _, id := range admins {
			if id != accountID {
				kept = append(kept, id)
			}
		}
		s.domainAdmins[domainID] = kept
	}
	return nil
}

// ========== Setting Repository ==========

func settingKey(accountID, app, name string) string {
	return accountID + "/" + app + "/" + name
}

// SaveUserSetting 保存用户偏好值
func (s *Store) SaveUserSetting(accountID, app, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := settingKey(accountID, app, name)
	if existing, ok := s.settings[key]; ok {
		existing.Value = value
		existing.UpdatedAt = time.Now()
		return nil
	}
	s.settings[key] = &domain.UserSetting{
		ID:        uuid.New().String(),
		AccountID: accountID,
		App:       app,
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return nil
}

// GetUserSetting 读取用户偏好值
func (s *Store) GetUserSetting(accountID, app, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[settingKey(accountID, app, name)]
	if !ok {
		return "", storage.ErrSettingNotFound
	}
	return setting.Value, nil
}

// ListUserSettings 返回账户的全部偏好
func (s *Store) ListUserSettings(accountID string) ([]domain.UserSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserSetting, 0)
	for _, setting := range s.settings {
		if setting.AccountID == accountID {
			out = append(out, *setting)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].App != out[j].App {
			return out[i].App < out[j].App
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ========== Revision Repository ==========

// SaveRevision 写入审计修订记录
func (s *Store) SaveRevision(rev *domain.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions = append(s.revisions, *rev)
	return nil
}

// ListRevisions 按实体查询修订记录
func (s *Store) ListRevisions(entity, entityID string) ([]domain.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Revision, 0)
	for _, rev := range s.revisions {
		if rev.Entity == entity && rev.EntityID == entityID {
			out = append(out, rev)
		}
	}
	return out, nil
}

// ========== Session Repository ==========

// SetSessionValue 写入会话键值
func (s *Store) SetSessionValue(accountID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[accountID] == nil {
		s.sessions[accountID] = make(map[string]string)
	}
	s.sessions[accountID][key] = value
	return nil
}

// GetSessionValue 读取会话键值
func (s *Store) GetSessionValue(accountID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.sessions[accountID][key]
	if !ok {
		return "", storage.ErrSessionKeyNotFound
	}
	return value, nil
}

// DeleteSessionValue 删除会话键值
func (s *Store) DeleteSessionValue(accountID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions[accountID], key)
	return nil
}

// ========== 工具方法 ==========

// WithTransaction 直接执行 fn。内存实现不提供回滚，只用于
// 开发与测试；原子性由各服务在写入前完成全部校验来保证。
func (s *Store) WithTransaction(fn func(tx storage.Store) error) error {
	return fn(s)
}

// Close 关闭存储
func (s *Store) Close() error { return nil }

// Health 健康检查
func (s *Store) Health() error { return nil }

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
