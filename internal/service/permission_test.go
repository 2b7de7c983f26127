package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailadmin/backend/internal/domain"
)

func TestRevokeDomainAdmin(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t, "example.com")
	super := f.addAccount(t, "admin@example.com", domain.RoleSuperAdmin)
	da := f.addAccount(t, "da@example.com", domain.RoleDomainAdmin)
	f.addMailboxFor(t, da, d, "da", 10)
	require.NoError(t, f.store.AddDomainAdmin(d.ID, da.ID))

	svc := NewPermissionService(f.store, f.log)

	adminIDs := func(t *testing.T) []string {
		t.Helper()
		ids, err := f.store.ListDomainAdminIDs(d.ID)
		require.NoError(t, err)
		return ids
	}

	t.Run("缺失ID返回无效请求且授权不变", func(t *testing.T) {
		before := adminIDs(t)
		assert.ErrorIs(t, svc.RevokeDomainAdmin(super, "", da.ID), ErrInvalidRequest)
		assert.ErrorIs(t, svc.RevokeDomainAdmin(super, d.ID, ""), ErrInvalidRequest)
		assert.Equal(t, before, adminIDs(t))
	})

	t.Run("无法解析的ID返回无效请求且授权不变", func(t *testing.T) {
		before := adminIDs(t)
		assert.ErrorIs(t, svc.RevokeDomainAdmin(super, "no-such-domain", da.ID), ErrInvalidRequest)
		assert.ErrorIs(t, svc.RevokeDomainAdmin(super, d.ID, "no-such-account"), ErrInvalidRequest)
		assert.Equal(t, before, adminIDs(t))
	})

	t.Run("无权操作目标域", func(t *testing.T) {
		outsider := f.addAccount(t, "outsider@example.com", domain.RoleDomainAdmin)
		err := svc.RevokeDomainAdmin(outsider, d.ID, da.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Contains(t, adminIDs(t), da.ID)
	})

	t.Run("撤销成功", func(t *testing.T) {
		require.NoError(t, svc.RevokeDomainAdmin(super, d.ID, da.ID))
		assert.NotContains(t, adminIDs(t), da.ID)
	})
}
