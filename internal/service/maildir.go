package service

import (
	"fmt"
	"os"
	"path/filepath"
)

// MaildirStore 管理磁盘上各账户的邮件目录。
// 目录按 root/domain/localpart 布局。
type MaildirStore struct {
	root string
}

// NewMaildirStore 创建邮件目录管理器
func NewMaildirStore(root string) *MaildirStore {
	return &MaildirStore{root: root}
}

func (m *MaildirStore) path(domainName, localPart string) string {
	return filepath.Join(m.root, domainName, localPart)
}

// EnsureDir 创建账户的邮件目录（含 maildir 子目录）
func (m *MaildirStore) EnsureDir(domainName, localPart string) error {
	base := m.path(domainName, localPart)
	for _, sub := range []string{"cur", "new", "tmp"} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0700); err != nil {
			return fmt.Errorf("failed to create maildir: %w", err)
		}
	}
	return nil
}

// RemoveDir 删除账户的邮件目录
func (m *MaildirStore) RemoveDir(domainName, localPart string) error {
	if err := os.RemoveAll(m.path(domainName, localPart)); err != nil {
		return fmt.Errorf("failed to remove maildir: %w", err)
	}
	return nil
}
