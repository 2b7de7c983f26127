package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
)

func newAccountService(t *testing.T, f *fixture) *AccountService {
	t.Helper()
	return NewAccountService(f.store, f.store, NewMaildirStore(t.TempDir()), f.log)
}

func TestAccountWizard(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t, "example.com")
	super := f.addAccount(t, "admin@example.com", domain.RoleSuperAdmin)
	svc := newAccountService(t, f)

	t.Run("完整三步创建账户", func(t *testing.T) {
		require.NoError(t, svc.WizardGeneral(super, &GeneralForm{
			Username: "newuser@example.com",
			Password: "Password123!",
			Role:     string(domain.RoleSimpleUser),
		}))
		require.NoError(t, svc.WizardMail(super, &MailForm{
			Email: "newuser@example.com",
			Quota: 10,
		}))

		account, err := svc.WizardFinalize(super, &PermsForm{})
		require.NoError(t, err)
		assert.Equal(t, "newuser@example.com", account.Username)

		// 邮箱与配额记录一并创建
		mailbox, err := f.store.GetMailboxByAccount(account.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, mailbox.Quota)
		assert.Equal(t, d.ID, mailbox.DomainID)

		bytes, err := f.store.GetQuotaUsage("newuser@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(0), bytes)

		// 向导状态已清除
		_, err = f.store.GetSessionValue(super.ID, SessionKeyAccountWizard)
		assert.ErrorIs(t, err, storage.ErrSessionKeyNotFound)
	})

	t.Run("跳过前置步骤报错", func(t *testing.T) {
		other := f.addAccount(t, "admin2@example.com", domain.RoleSuperAdmin)
		err := svc.WizardMail(other, &MailForm{Email: "x@example.com"})
		assert.ErrorIs(t, err, ErrWizardIncomplete)
		_, err = svc.WizardFinalize(other, &PermsForm{})
		assert.ErrorIs(t, err, ErrWizardIncomplete)
	})

	t.Run("非法角色值被拒绝", func(t *testing.T) {
		err := svc.WizardGeneral(super, &GeneralForm{
			Username: "badrole@example.com",
			Password: "Password123!",
			Role:     "Wizards",
		})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("用户名占用", func(t *testing.T) {
		err := svc.WizardGeneral(super, &GeneralForm{
			Username: "newuser@example.com",
			Password: "Password123!",
			Role:     string(domain.RoleSimpleUser),
		})
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("未知域", func(t *testing.T) {
		require.NoError(t, svc.WizardGeneral(super, &GeneralForm{
			Username: "ghost@nowhere.org",
			Password: "Password123!",
			Role:     string(domain.RoleSimpleUser),
		}))
		err := svc.WizardMail(super, &MailForm{Email: "ghost@nowhere.org"})
		assert.ErrorIs(t, err, ErrUnknownDomain)
	})

	t.Run("创建域管理员并授权", func(t *testing.T) {
		require.NoError(t, svc.WizardGeneral(super, &GeneralForm{
			Username: "da@example.com",
			Password: "Password123!",
			Role:     string(domain.RoleDomainAdmin),
		}))
		require.NoError(t, svc.WizardMail(super, &MailForm{Email: "da@example.com", Quota: 5}))

		account, err := svc.WizardFinalize(super, &PermsForm{Domains: []string{"example.com"}})
		require.NoError(t, err)

		domainIDs, err := f.store.ListAdministeredDomainIDs(account.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{d.ID}, domainIDs)
	})

	t.Run("域管理员不能创建管理角色", func(t *testing.T) {
		da, err := f.store.GetAccountByUsername("da@example.com")
		require.NoError(t, err)
		err = svc.WizardGeneral(da, &GeneralForm{
			Username: "sneaky@example.com",
			Password: "Password123!",
			Role:     string(domain.RoleSuperAdmin),
		})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestAccountEdit(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t, "example.com")
	super := f.addAccount(t, "admin@example.com", domain.RoleSuperAdmin)
	alice := f.addAccount(t, "alice@example.com", domain.RoleSimpleUser)
	f.addMailboxFor(t, alice, d, "alice", 10)
	svc := newAccountService(t, f)

	t.Run("编辑包预填当前值", func(t *testing.T) {
		bundle, err := svc.GetEditBundle(super, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", bundle.General.Username)
		require.NotNil(t, bundle.Mail)
		assert.Equal(t, "alice@example.com", bundle.Mail.Email)
		assert.Equal(t, 10, bundle.Mail.Quota)
	})

	t.Run("单事务保存全部子表单", func(t *testing.T) {
		err := svc.Edit(super, alice.ID, EditInput{
			General: &GeneralForm{
				Username:  "alice@example.com",
				FirstName: "Alice",
				LastName:  "Lee",
				Role:      string(domain.RoleSimpleUser),
			},
			Mail: &MailForm{Email: "alice@example.com", Quota: 25},
		})
		require.NoError(t, err)

		updated, err := f.store.GetAccount(alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", updated.FirstName)

		mailbox, err := f.store.GetMailboxByAccount(alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, mailbox.Quota)
	})

	t.Run("校验失败不产生任何变更", func(t *testing.T) {
		before, err := f.store.GetAccount(alice.ID)
		require.NoError(t, err)

		err = svc.Edit(super, alice.ID, EditInput{
			General: &GeneralForm{
				Username:  "alice@example.com",
				FirstName: "Mallory",
				Role:      string(domain.RoleSimpleUser),
			},
			Mail: &MailForm{Email: "alice@nowhere.org", Quota: 5},
		})
		assert.ErrorIs(t, err, ErrUnknownDomain)

		after, err := f.store.GetAccount(alice.ID)
		require.NoError(t, err)
		assert.Equal(t, before.FirstName, after.FirstName)
	})

	t.Run("无权访问的目标", func(t *testing.T) {
		stranger := f.addAccount(t, "stranger@example.com", domain.RoleDomainAdmin)
		err := svc.Edit(stranger, alice.ID, EditInput{
			General: &GeneralForm{Username: "alice@example.com", Role: string(domain.RoleSimpleUser)},
		})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("修订记录写入", func(t *testing.T) {
		revisions, err := f.store.ListRevisions("account", alice.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, revisions)
	})
}

func TestAccountDelete(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t, "example.com")
	super := f.addAccount(t, "admin@example.com", domain.RoleSuperAdmin)

	maildirRoot := t.TempDir()
	svc := NewAccountService(f.store, f.store, NewMaildirStore(maildirRoot), f.log)

	setup := func(t *testing.T, username, localPart string) (*domain.Account, *domain.Mailbox) {
		account := f.addAccount(t, username, domain.RoleSimpleUser)
		mb := f.addMailboxFor(t, account, d, localPart, 10)
		require.NoError(t, f.store.SetQuotaUsage(localPart+"@example.com", 1024))
		require.NoError(t, os.MkdirAll(filepath.Join(maildirRoot, "example.com", localPart, "cur"), 0700))
		return account, mb
	}

	t.Run("删除账户级联清理", func(t *testing.T) {
		account, mb := setup(t, "victim@example.com", "victim")
		other := f.addAccount(t, "other@example.com", domain.RoleSimpleUser)
		otherMb := f.addMailboxFor(t, other, d, "other", 10)
		alias := f.addAlias(t, d, "both", nil, []string{mb.ID, otherMb.ID})

		require.NoError(t, svc.Delete(super, account.ID, false))

		_, err := f.store.GetAccount(account.ID)
		assert.ErrorIs(t, err, storage.ErrAccountNotFound)
		_, err = f.store.GetMailbox(mb.ID)
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)

		bytes, err := f.store.GetQuotaUsage("victim@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(0), bytes)

		members, err := f.store.AliasMailboxIDs(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{otherMb.ID}, members)

		// keepdir=false 删除磁盘目录
		_, err = os.Stat(filepath.Join(maildirRoot, "example.com", "victim"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("keepdir保留磁盘目录", func(t *testing.T) {
		account, _ := setup(t, "keeper@example.com", "keeper")
		require.NoError(t, svc.Delete(super, account.ID, true))

		_, err := os.Stat(filepath.Join(maildirRoot, "example.com", "keeper"))
		assert.NoError(t, err)
	})

	t.Run("不能删除自己", func(t *testing.T) {
		err := svc.Delete(super, super.ID, false)
		assert.ErrorIs(t, err, ErrOwnAccount)
	})
}

func TestListAdminUsernames(t *testing.T) {
	f := newFixture(t)
	f.addAccount(t, "admin@example.com", domain.RoleSuperAdmin)
	f.addAccount(t, "da@example.com", domain.RoleDomainAdmin)
	f.addAccount(t, "user@example.com", domain.RoleSimpleUser)
	svc := newAccountService(t, f)

	usernames, err := svc.ListAdminUsernames()
	require.NoError(t, err)
	assert.Equal(t, []string{"da@example.com"}, usernames)
}
