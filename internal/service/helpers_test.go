package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage/memory"
)

// fixture 服务层测试的公共环境
type fixture struct {
	store *memory.Store
	log   *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		store: memory.NewStore(),
		log:   zap.NewNop(),
	}
}

func (f *fixture) addDomain(t *testing.T, name string) *domain.Domain {
	t.Helper()
	d := &domain.Domain{ID: uuid.New().String(), Name: name, Enabled: true}
	require.NoError(t, f.store.SaveDomain(d))
	return d
}

func (f *fixture) addAccount(t *testing.T, username string, role domain.Role) *domain.Account {
	t.Helper()
	hash, err := auth.HashPassword("Password123!")
	require.NoError(t, err)
	account := &domain.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, f.store.CreateAccount(account))
	return account
}

// addMailboxFor 为账户创建邮箱，localPart 取用户名 @ 前的部分
func (f *fixture) addMailboxFor(t *testing.T, account *domain.Account, d *domain.Domain, localPart string, quota int) *domain.Mailbox {
	t.Helper()
	mb := &domain.Mailbox{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		DomainID:  d.ID,
		Address:   localPart,
		Quota:     quota,
	}
	require.NoError(t, f.store.SaveMailbox(mb))
	return mb
}

func (f *fixture) addAlias(t *testing.T, d *domain.Domain, localPart string, ext []string, mailboxIDs []string) *domain.Alias {
	t.Helper()
	alias := &domain.Alias{
		ID:       uuid.New().String(),
		DomainID: d.ID,
		Address:  localPart,
		Enabled:  true,
	}
	alias.SetExtList(ext)
	require.NoError(t, f.store.SaveAlias(alias, mailboxIDs))
	return alias
}
