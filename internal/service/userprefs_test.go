package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/params"
)

func newUserPrefsFixture(t *testing.T) (*fixture, *UserPrefsService) {
	t.Helper()
	f := newFixture(t)

	registry := params.NewRegistry()
	registry.Register("general", params.Options{})
	registry.AddUserParam("general", params.ParamDef{Name: "lang", Label: "语言", Type: "list", Default: "zh"})
	registry.AddUserParam("general", params.ParamDef{Name: "items_per_page", Label: "每页条数", Type: "int", Default: "30"})
	registry.Register("webmail", params.Options{NeedsMailbox: true})
	registry.AddUserParam("webmail", params.ParamDef{Name: "signature", Label: "签名", Type: "text"})

	svc := NewUserPrefsService(f.store, f.store, registry, auth.NewCrypt("test-session-secret"), f.log)
	return f, svc
}

func TestForward(t *testing.T) {
	f, svc := newUserPrefsFixture(t)
	d := f.addDomain(t, "example.com")
	alice := f.addAccount(t, "alice@example.com", domain.RoleSimpleUser)
	mb := f.addMailboxFor(t, alice, d, "alice", 10)

	t.Run("无邮箱的账户报错", func(t *testing.T) {
		noMb := f.addAccount(t, "nomb@example.com", domain.RoleSimpleUser)
		_, err := svc.GetForward(noMb)
		assert.ErrorIs(t, err, ErrNoMailbox)
		err = svc.SetForward(noMb, &ForwardForm{})
		assert.ErrorIs(t, err, ErrNoMailbox)
	})

	t.Run("无别名时返回空表单", func(t *testing.T) {
		form, err := svc.GetForward(alice)
		require.NoError(t, err)
		assert.Empty(t, form.Destinations)
		assert.False(t, form.KeepCopies)
	})

	t.Run("保留副本时内部目的地为本人邮箱", func(t *testing.T) {
		require.NoError(t, svc.SetForward(alice, &ForwardForm{
			Destinations: []string{"backup@other.org"},
			KeepCopies:   true,
		}))

		alias, err := f.store.GetAliasByAddress("alice", d.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"backup@other.org"}, alias.ExtList())

		members, err := f.store.AliasMailboxIDs(alias.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{mb.ID}, members)
	})

	t.Run("取消保留副本清空内部目的地", func(t *testing.T) {
		require.NoError(t, svc.SetForward(alice, &ForwardForm{
			Destinations: []string{"backup@other.org"},
			KeepCopies:   false,
		}))

		alias, err := f.store.GetAliasByAddress("alice", d.ID)
		require.NoError(t, err)
		members, err := f.store.AliasMailboxIDs(alias.ID)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("非法目的地不产生任何变更", func(t *testing.T) {
		before, err := svc.GetForward(alice)
		require.NoError(t, err)

		err = svc.SetForward(alice, &ForwardForm{
			Destinations: []string{"valid@other.org", "not-an-address"},
		})
		assert.ErrorIs(t, err, ErrBadDestination)

		after, err := svc.GetForward(alice)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("读取已保存的转发设置", func(t *testing.T) {
		require.NoError(t, svc.SetForward(alice, &ForwardForm{
			Destinations: []string{"a@other.org", "b@other.org"},
			KeepCopies:   true,
		}))

		form, err := svc.GetForward(alice)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@other.org", "b@other.org"}, form.Destinations)
		assert.True(t, form.KeepCopies)
	})

	t.Run("禁用账户创建的转发别名同样禁用", func(t *testing.T) {
		frozen := f.addAccount(t, "frozen@example.com", domain.RoleSimpleUser)
		f.addMailboxFor(t, frozen, d, "frozen", 10)
		frozen.IsActive = false
		require.NoError(t, f.store.UpdateAccount(frozen))

		require.NoError(t, svc.SetForward(frozen, &ForwardForm{
			Destinations: []string{"elsewhere@other.org"},
		}))

		alias, err := f.store.GetAliasByAddress("frozen", d.ID)
		require.NoError(t, err)
		assert.False(t, alias.Enabled)
	})
}

type stubPasswordManager struct{ claim bool }

func (s stubPasswordManager) ManagesPassword(*domain.Account) bool { return s.claim }

func TestProfile(t *testing.T) {
	f, svc := newUserPrefsFixture(t)
	alice := f.addAccount(t, "alice@example.com", domain.RoleSimpleUser)

	t.Run("更新姓名", func(t *testing.T) {
		require.NoError(t, svc.UpdateProfile(alice, ProfileInput{FirstName: "Alice", LastName: "Lee"}))
		updated, err := f.store.GetAccount(alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", updated.FirstName)
	})

	t.Run("密码修改要求旧密码正确", func(t *testing.T) {
		err := svc.UpdateProfile(alice, ProfileInput{
			OldPassword: "wrong", NewPassword: "NewPassword1", Confirmation: "NewPassword1",
		})
		assert.ErrorIs(t, err, ErrBadOldPassword)
	})

	t.Run("两次输入不一致", func(t *testing.T) {
		err := svc.UpdateProfile(alice, ProfileInput{
			OldPassword: "Password123!", NewPassword: "NewPassword1", Confirmation: "Other1",
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("修改成功后密码加密写入会话", func(t *testing.T) {
		require.NoError(t, svc.UpdateProfile(alice, ProfileInput{
			FirstName: "Alice", OldPassword: "Password123!",
			NewPassword: "NewPassword1", Confirmation: "NewPassword1",
		}))

		encrypted, err := f.store.GetSessionValue(alice.ID, SessionKeyPassword)
		require.NoError(t, err)
		assert.NotEqual(t, "NewPassword1", encrypted)

		plaintext, err := auth.NewCrypt("test-session-secret").Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, "NewPassword1", plaintext)
	})

	t.Run("外部管理密码时隐藏密码字段", func(t *testing.T) {
		svc.RegisterPasswordManager(stubPasswordManager{claim: true})
		form := svc.GetProfile(alice)
		assert.False(t, form.PasswordEditable)
	})
}

func TestPreferences(t *testing.T) {
	f, svc := newUserPrefsFixture(t)
	d := f.addDomain(t, "example.com")
	alice := f.addAccount(t, "alice@example.com", domain.RoleSimpleUser)
	f.addMailboxFor(t, alice, d, "alice", 10)

	t.Run("保存偏好并跳过保留键", func(t *testing.T) {
		require.NoError(t, svc.SavePreferences(alice, map[string]string{
			"general.lang": "en",
			"update":       "提交",
		}))

		value, err := f.store.GetUserSetting(alice.ID, "general", "lang")
		require.NoError(t, err)
		assert.Equal(t, "en", value)
	})

	t.Run("格式错误或未注册的参数拒绝整个请求", func(t *testing.T) {
		err := svc.SavePreferences(alice, map[string]string{"nodot": "x"})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		err = svc.SavePreferences(alice, map[string]string{"general.unknown": "x"})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("参数列表按应用与注册顺序", func(t *testing.T) {
		views, err := svc.EditableParameters(alice)
		require.NoError(t, err)
		require.Len(t, views, 3)
		assert.Equal(t, "general", views[0].App)
		assert.Equal(t, "lang", views[0].Name)
		assert.Equal(t, "en", views[0].Value) // 已保存的值
		assert.Equal(t, "items_per_page", views[1].Name)
		assert.Equal(t, "30", views[1].Value) // 默认值
		assert.Equal(t, "webmail", views[2].App)
	})

	t.Run("无邮箱的用户看不到需要邮箱的应用", func(t *testing.T) {
		noMb := f.addAccount(t, "nomb2@example.com", domain.RoleSimpleUser)
		views, err := svc.EditableParameters(noMb)
		require.NoError(t, err)
		for _, view := range views {
			assert.NotEqual(t, "webmail", view.App)
		}
	})
}
