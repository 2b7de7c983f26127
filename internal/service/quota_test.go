package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/listing"
)

func TestQuotaList(t *testing.T) {
	f := newFixture(t)
	d := f.addDomain(t, "example.com")
	super := f.addAccount(t, "admin@example.com", domain.RoleSuperAdmin)

	alice := f.addAccount(t, "alice@example.com", domain.RoleSimpleUser)
	f.addMailboxFor(t, alice, d, "alice", 10)
	bob := f.addAccount(t, "bob@example.com", domain.RoleSimpleUser)
	f.addMailboxFor(t, bob, d, "bob", 20)
	carol := f.addAccount(t, "carol@example.com", domain.RoleSimpleUser)
	f.addMailboxFor(t, carol, d, "carol", 0) // 无限配额

	require.NoError(t, f.store.SetQuotaUsage("alice@example.com", 5242880))
	require.NoError(t, f.store.SetQuotaUsage("bob@example.com", 10485760))

	svc := NewQuotaService(f.store, listing.DefaultPageSize, f.log)

	t.Run("10MB配额用掉5242880字节为50%", func(t *testing.T) {
		out, err := svc.List(super, ListQuotasInput{SearchQuery: "alice", Page: 1})
		require.NoError(t, err)
		require.Len(t, out.Quotas, 1)
		assert.InDelta(t, 50.0, out.Quotas[0].Usage, 0.001)
	})

	t.Run("无限配额始终排除", func(t *testing.T) {
		out, err := svc.List(super, ListQuotasInput{Page: 1})
		require.NoError(t, err)
		for _, row := range out.Quotas {
			assert.NotEqual(t, "carol@example.com", row.Address)
		}

		// 搜索命中也不例外
		out, err = svc.List(super, ListQuotasInput{SearchQuery: "carol", Page: 1})
		require.NoError(t, err)
		assert.Empty(t, out.Quotas)
	})

	t.Run("按用量降序", func(t *testing.T) {
		out, err := svc.List(super, ListQuotasInput{SortOrder: "-quota_usage", Page: 1})
		require.NoError(t, err)
		require.Len(t, out.Quotas, 2)
		assert.GreaterOrEqual(t, out.Quotas[0].Usage, out.Quotas[1].Usage)
	})

	t.Run("非法排序键报错", func(t *testing.T) {
		_, err := svc.List(super, ListQuotasInput{SortOrder: "usage", Page: 1})
		assert.ErrorIs(t, err, listing.ErrInvalidSortKey)
	})

	t.Run("页码越界返回空结果", func(t *testing.T) {
		out, err := svc.List(super, ListQuotasInput{Page: 5})
		require.NoError(t, err)
		assert.Empty(t, out.Quotas)
	})

	t.Run("域管理员只见管辖域", func(t *testing.T) {
		other := f.addDomain(t, "other.org")
		da := f.addAccount(t, "da@other.org", domain.RoleDomainAdmin)
		f.addMailboxFor(t, da, other, "da", 5)
		require.NoError(t, f.store.AddDomainAdmin(other.ID, da.ID))

		out, err := svc.List(da, ListQuotasInput{Page: 1})
		require.NoError(t, err)
		require.Len(t, out.Quotas, 1)
		assert.Equal(t, "da@other.org", out.Quotas[0].Address)
	})

	t.Run("无管辖域的域管理员得到空列表", func(t *testing.T) {
		lonely := f.addAccount(t, "lonely@example.com", domain.RoleDomainAdmin)
		out, err := svc.List(lonely, ListQuotasInput{Page: 1})
		require.NoError(t, err)
		assert.Empty(t, out.Quotas)
	})
}
