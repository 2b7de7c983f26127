package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/listing"
	"mailadmin/backend/internal/storage"
)

// SessionKeyIdentityFilters 身份列表过滤条件的会话键
const SessionKeyIdentityFilters = "identities_filters"

// identitySortKeys 身份列表允许的排序键
var identitySortKeys = []string{"identity", "name_or_rcpt", "tags"}

// IdentityFilters 身份列表的过滤条件三元组
type IdentityFilters struct {
	SearchQuery string `json:"searchquery"`
	IdtFilter   string `json:"idtfilter"` // account / alias / forward / dlist
	GrpFilter   string `json:"grpfilter"` // 账户组标签
}

// IdentityService 聚合账户与别名的统一身份列表
type IdentityService struct {
	store    storage.Store
	sessions storage.SessionRepository
	pageSize int
	log      *zap.Logger
}

// NewIdentityService 创建身份服务
func NewIdentityService(store storage.Store, sessions storage.SessionRepository, pageSize int, log *zap.Logger) *IdentityService {
	if pageSize <= 0 {
		pageSize = listing.DefaultPageSize
	}
	return &IdentityService{
		store:    store,
		sessions: sessions,
		pageSize: pageSize,
		log:      log,
	}
}

// ListIdentitiesInput 身份列表输入。
// Filters 为 nil 时复用会话中保存的过滤条件。
type ListIdentitiesInput struct {
	Filters   *IdentityFilters
	SortOrder string // 形如 "identity" 或 "-tags"
	Page      int
}

// ListIdentitiesOutput 身份列表输出。
// 页码越界时 Identities 为空且 Page 为 nil。
type ListIdentitiesOutput struct {
	Identities []domain.Identity
	Page       *listing.Page
}

// List 返回调用者可见的身份列表。
// 本次请求携带的过滤条件会写入会话，翻页请求不带条件时沿用。
func (s *IdentityService) List(caller *domain.Account, input ListIdentitiesInput) (*ListIdentitiesOutput, error) {
	filters, err := s.resolveFilters(caller, input.Filters)
	if err != nil {
		return nil, err
	}

	sortKey, desc, err := listing.SortOrder(input.SortOrder, "identity", identitySortKeys)
	if err != nil {
		return nil, err
	}

	identities, err := s.collect(caller, filters)
	if err != nil {
		return nil, err
	}

	sortIdentities(identities, sortKey, desc)

	page := listing.Paginate(len(identities), input.Page, s.pageSize)
	if page == nil {
		return &ListIdentitiesOutput{}, nil
	}

	return &ListIdentitiesOutput{
		Identities: identities[page.Start:page.End],
		Page:       page,
	}, nil
}

// resolveFilters 解析本次请求的过滤条件并同步会话
func (s *IdentityService) resolveFilters(caller *domain.Account, requested *IdentityFilters) (*IdentityFilters, error) {
	if requested != nil {
		raw, err := json.Marshal(requested)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filters: %w", err)
		}
		if err := s.sessions.SetSessionValue(caller.ID, SessionKeyIdentityFilters, string(raw)); err != nil {
			s.log.Warn("failed to persist identity filters", zap.Error(err))
		}
		return requested, nil
	}

	filters := &IdentityFilters{}
	raw, err := s.sessions.GetSessionValue(caller.ID, SessionKeyIdentityFilters)
	if err == nil {
		_ = json.Unmarshal([]byte(raw), filters)
	}
	return filters, nil
}

// collect 合并可见的账户与别名投影
func (s *IdentityService) collect(caller *domain.Account, filters *IdentityFilters) ([]domain.Identity, error) {
	domainNames, err := s.domainNameIndex()
	if err != nil {
		return nil, err
	}

	identities := make([]domain.Identity, 0)

	if filters.IdtFilter == "" || filters.IdtFilter == "account" {
		accounts, err := s.visibleAccounts(caller)
		if err != nil {
			return nil, err
		}
		for _, account := range accounts {
			identity := domain.Identity{
				Kind:       domain.IdentityAccount,
				Identity:   account.Username,
				NameOrRcpt: account.FullName(),
				Tags:       []string{"account", account.GroupTag()},
			}
			if matchIdentity(identity, filters) {
				identities = append(identities, identity)
			}
		}
	}

	// 组过滤只作用于账户，别名没有组
	if filters.GrpFilter == "" && filters.IdtFilter != "account" {
		aliases, err := s.visibleAliases(caller)
		if err != nil {
			return nil, err
		}
		for _, alias := range aliases {
			identity, err := s.aliasIdentity(&alias, domainNames)
			if err != nil {
				return nil, err
			}
			if filters.IdtFilter != "" && identity.Tags[0] != filters.IdtFilter {
				continue
			}
			if matchIdentity(identity, filters) {
				identities = append(identities, identity)
			}
		}
	}

	return identities, nil
}

// visibleAccounts 返回调用者可见的账户。
// 超级管理员可见全部；域管理员可见其域内有邮箱的账户和自己。
func (s *IdentityService) visibleAccounts(caller *domain.Account) ([]domain.Account, error) {
	accounts, err := s.store.ListAccounts()
	if err != nil {
		return nil, err
	}
	if caller.IsSuperuser() {
		return accounts, nil
	}

	domainIDs, err := s.store.ListAdministeredDomainIDs(caller.ID)
	if err != nil {
		return nil, err
	}
	administered := make(map[string]bool, len(domainIDs))
	for _, id := range domainIDs {
		administered[id] = true
	}

	visible := make([]domain.Account, 0)
	for _, account := range accounts {
		if account.ID == caller.ID {
			visible = append(visible, account)
			continue
		}
		mailbox, err := s.store.GetMailboxByAccount(account.ID)
		if err != nil {
			continue
		}
		if administered[mailbox.DomainID] {
			visible = append(visible, account)
		}
	}
	return visible, nil
}

func (s *IdentityService) visibleAliases(caller *domain.Account) ([]domain.Alias, error) {
	domainIDs, err := visibleDomainIDs(s.store, caller)
	if err != nil {
		return nil, err
	}
	if domainIDs != nil && len(domainIDs) == 0 {
		return nil, nil
	}
	return s.store.ListAliases(domainIDs)
}

// aliasIdentity 构造别名的身份投影。
// 主标签：只有外部目的地时为 forward，内部目的地多于一个时为
// dlist，否则为 alias。
func (s *IdentityService) aliasIdentity(alias *domain.Alias, domainNames map[string]string) (domain.Identity, error) {
	recipients := alias.ExtList()

	mailboxIDs, err := s.store.AliasMailboxIDs(alias.ID)
	if err != nil {
		return domain.Identity{}, err
	}
	for _, mailboxID := range mailboxIDs {
		mailbox, err := s.store.GetMailbox(mailboxID)
		if err != nil {
			continue
		}
		recipients = append(recipients, mailbox.FullAddress(domainNames[mailbox.DomainID]))
	}

	tag := "alias"
	switch {
	case len(mailboxIDs) == 0 && len(alias.ExtList()) > 0:
		tag = "forward"
	case len(mailboxIDs) > 1:
		tag = "dlist"
	}

	return domain.Identity{
		Kind:       domain.IdentityAlias,
		Identity:   alias.FullAddress(domainNames[alias.DomainID]),
		NameOrRcpt: strings.Join(recipients, ", "),
		Tags:       []string{tag},
	}, nil
}

func (s *IdentityService) domainNameIndex() (map[string]string, error) {
	domains, err := s.store.ListDomains()
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(domains))
	for _, d := range domains {
		index[d.ID] = d.Name
	}
	return index, nil
}

// matchIdentity 按搜索词和组过滤匹配身份
func matchIdentity(identity domain.Identity, filters *IdentityFilters) bool {
	if filters.GrpFilter != "" {
		found := false
		for _, tag := range identity.Tags {
			if tag == filters.GrpFilter {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filters.SearchQuery == "" {
		return true
	}
	query := strings.ToLower(filters.SearchQuery)
	return strings.Contains(strings.ToLower(identity.Identity), query) ||
		strings.Contains(strings.ToLower(identity.NameOrRcpt), query)
}

// sortIdentities 稳定排序。tags 键只比较首个标签。
func sortIdentities(identities []domain.Identity, sortKey string, desc bool) {
	less := func(a, b domain.Identity) bool {
		switch sortKey {
		case "name_or_rcpt":
			return a.NameOrRcpt < b.NameOrRcpt
		case "tags":
			return a.Tags[0] < b.Tags[0]
		default:
			return a.Identity < b.Identity
		}
	}
	sort.SliceStable(identities, func(i, j int) bool {
		if desc {
			return less(identities[j], identities[i])
		}
		return less(identities[i], identities[j])
	})
}
