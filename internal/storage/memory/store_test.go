package memory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
)

func newTestDomain(t *testing.T, s *Store, name string) *domain.Domain {
	t.Helper()
	d := &domain.Domain{ID: uuid.New().String(), Name: name, Enabled: true}
	require.NoError(t, s.SaveDomain(d))
	return d
}

func newTestMailbox(t *testing.T, s *Store, domainID, address string, quota int) *domain.Mailbox {
	t.Helper()
	account := &domain.Account{
		ID:       uuid.New().String(),
		Username: address + "@test",
		Role:     domain.RoleSimpleUser,
		IsActive: true,
	}
	require.NoError(t, s.CreateAccount(account))
	mb := &domain.Mailbox{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		DomainID:  domainID,
		Address:   address,
		Quota:     quota,
	}
	require.NoError(t, s.SaveMailbox(mb))
	return mb
}

func TestAccountRepository(t *testing.T) {
	s := NewStore()

	t.Run("创建并按用户名查询", func(t *testing.T) {
		account := &domain.Account{ID: uuid.New().String(), Username: "admin@example.com", Role: domain.RoleSuperAdmin, IsActive: true}
		require.NoError(t, s.CreateAccount(account))

		got, err := s.GetAccountByUsername("ADMIN@example.com")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("重复用户名返回错误", func(t *testing.T) {
		dup := &domain.Account{ID: uuid.New().String(), Username: "admin@example.com", Role: domain.RoleSimpleUser}
		assert.ErrorIs(t, s.CreateAccount(dup), storage.ErrUsernameExists)
	})

	t.Run("管理员列表排除超管与普通用户", func(t *testing.T) {
		da := &domain.Account{ID: uuid.New().String(), Username: "da@example.com", Role: domain.RoleDomainAdmin, IsActive: true}
		require.NoError(t, s.CreateAccount(da))
		su := &domain.Account{ID: uuid.New().String(), Username: "user@example.com", Role: domain.RoleSimpleUser, IsActive: true}
		require.NoError(t, s.CreateAccount(su))

		admins, err := s.ListAdminAccounts()
		require.NoError(t, err)
		require.Len(t, admins, 1)
		assert.Equal(t, "da@example.com", admins[0].Username)
	})

	t.Run("删除后查询失败", func(t *testing.T) {
		account := &domain.Account{ID: uuid.New().String(), Username: "gone@example.com", Role: domain.RoleSimpleUser}
		require.NoError(t, s.CreateAccount(account))
		require.NoError(t, s.DeleteAccount(account.ID))
		_, err := s.GetAccount(account.ID)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
	})
}

func TestListQuotas(t *testing.T) {
	s := NewStore()
	d := newTestDomain(t, s, "example.com")

	newTestMailbox(t, s, d.ID, "alice", 10)
	newTestMailbox(t, s, d.ID, "bob", 20)
	newTestMailbox(t, s, d.ID, "carol", 0) // 无限配额，不应出现在列表中

	require.NoError(t, s.SetQuotaUsage("alice@example.com", 5242880))
	require.NoError(t, s.SetQuotaUsage("bob@example.com", 1048576))

	t.Run("排除配额为0的邮箱", func(t *testing.T) {
		rows, err := s.ListQuotas(nil, "", "address", false)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.NotEqual(t, "carol@example.com", row.Address)
		}
	})

	t.Run("用量百分比计算", func(t *testing.T) {
		rows, err := s.ListQuotas(nil, "alice", "address", false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.InDelta(t, 50.0, rows[0].Usage, 0.001)
	})

	t.Run("按用量降序排序", func(t *testing.T) {
		rows, err := s.ListQuotas(nil, "", "quota_usage", true)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "alice@example.com", rows[0].Address)
	})

	t.Run("按域过滤", func(t *testing.T) {
		other := newTestDomain(t, s, "other.org")
		newTestMailbox(t, s, other.ID, "dave", 5)

		rows, err := s.ListQuotas([]string{other.ID}, "", "address", false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "dave@other.org", rows[0].Address)
	})
}

func TestAliasRepository(t *testing.T) {
	s := NewStore()
	d := newTestDomain(t, s, "example.com")
	mb1 := newTestMailbox(t, s, d.ID, "alice", 10)
	mb2 := newTestMailbox(t, s, d.ID, "bob", 10)

	alias := &domain.Alias{ID: uuid.New().String(), DomainID: d.ID, Address: "sales", Enabled: true}
	require.NoError(t, s.SaveAlias(alias, []string{mb1.ID, mb2.ID}))

	t.Run("成员集合被保存", func(t *testing.T) {
		members, err := s.AliasMailboxIDs(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{mb1.ID, mb2.ID}, members)
	})

	t.Run("保存覆盖成员集合", func(t *testing.T) {
		require.NoError(t, s.SaveAlias(alias, []string{mb2.ID}))
		members, err := s.AliasMailboxIDs(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{mb2.ID}, members)
	})

	t.Run("删除邮箱时从所有别名移除", func(t *testing.T) {
		require.NoError(t, s.SaveAlias(alias, []string{mb1.ID, mb2.ID}))
		require.NoError(t, s.RemoveAliasMember(mb1.ID))
		members, err := s.AliasMailboxIDs(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{mb2.ID}, members)
	})

	t.Run("按地址查询", func(t *testing.T) {
		got, err := s.GetAliasByAddress("sales", d.ID)
		require.NoError(t, err)
		assert.Equal(t, alias.ID, got.ID)

		_, err = s.GetAliasByAddress("nope", d.ID)
		assert.ErrorIs(t, err, storage.ErrAliasNotFound)
	})
}

func TestDomainAdmins(t *testing.T) {
	s := NewStore()
	d1 := newTestDomain(t, s, "a.com")
	d2 := newTestDomain(t, s, "b.com")
	admin := &domain.Account{ID: uuid.New().String(), Username: "da@a.com", Role: domain.RoleDomainAdmin, IsActive: true}
	require.NoError(t, s.CreateAccount(admin))

	require.NoError(t, s.AddDomainAdmin(d1.ID, admin.ID))
	require.NoError(t, s.AddDomainAdmin(d2.ID, admin.ID))
	require.NoError(t, s.AddDomainAdmin(d1.ID, admin.ID)) // 重复授予幂等

	t.Run("可管理域列表", func(t *testing.T) {
		ids, err := s.ListAdministeredDomainIDs(admin.ID)
		require.NoError(t, err)
		assert.Len(t, ids, 2)
	})

	t.Run("撤销单个域", func(t *testing.T) {
		require.NoError(t, s.RemoveDomainAdmin(d1.ID, admin.ID))
		ids, err := s.ListAdministeredDomainIDs(admin.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{d2.ID}, ids)
	})

	t.Run("从所有域移除", func(t *testing.T) {
		require.NoError(t, s.RemoveAdminFromAllDomains(admin.ID))
		ids, err := s.ListAdministeredDomainIDs(admin.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestSettingsAndSessions(t *testing.T) {
	s := NewStore()
	accountID := uuid.New().String()

	t.Run("偏好保存与覆盖", func(t *testing.T) {
		require.NoError(t, s.SaveUserSetting(accountID, "general", "lang", "zh"))
		require.NoError(t, s.SaveUserSetting(accountID, "general", "lang", "en"))

		value, err := s.GetUserSetting(accountID, "general", "lang")
		require.NoError(t, err)
		assert.Equal(t, "en", value)

		all, err := s.ListUserSettings(accountID)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("缺失偏好返回错误", func(t *testing.T) {
		_, err := s.GetUserSetting(accountID, "general", "nope")
		assert.ErrorIs(t, err, storage.ErrSettingNotFound)
	})

	t.Run("会话键值", func(t *testing.T) {
		require.NoError(t, s.SetSessionValue(accountID, "identities_filters", `{"searchquery":"a"}`))
		value, err := s.GetSessionValue(accountID, "identities_filters")
		require.NoError(t, err)
		assert.Equal(t, `{"searchquery":"a"}`, value)

		require.NoError(t, s.DeleteSessionValue(accountID, "identities_filters"))
		_, err = s.GetSessionValue(accountID, "identities_filters")
		assert.ErrorIs(t, err, storage.ErrSessionKeyNotFound)
	})
}
