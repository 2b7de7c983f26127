package domain

import (
	"strings"
	"time"
)

// Alias 表示域下的转发规则。
// 内部目的地是本系统的邮箱（通过 AliasMailbox 关联），外部目的地是
// 任意邮件地址。地址与某个邮箱地址相同的别名即该邮箱的转发配置。
type Alias struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	DomainID        string    `json:"domainId" gorm:"type:varchar(36);uniqueIndex:idx_aliases_address_domain,priority:2;not null"`
	Address         string    `json:"address" gorm:"type:varchar(255);uniqueIndex:idx_aliases_address_domain,priority:1;not null"` // 本地部分
	Enabled         bool      `json:"enabled" gorm:"default:true"`
	ExtDestinations string    `json:"-" gorm:"type:text"` // 外部目的地，分号分隔
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ExtList 返回外部目的地地址列表
func (a *Alias) ExtList() []string {
	if a.ExtDestinations == "" {
		return nil
	}
	parts := strings.Split(a.ExtDestinations, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SetExtList 覆盖外部目的地地址列表
func (a *Alias) SetExtList(dests []string) {
	a.ExtDestinations = strings.Join(dests, ";")
}

// FullAddress 拼接完整别名地址
func (a *Alias) FullAddress(domainName string) string {
	return a.Address + "@" + domainName
}

// AliasMailbox 别名与内部邮箱目的地的多对多关联
type AliasMailbox struct {
	AliasID   string `json:"aliasId" gorm:"primaryKey;type:varchar(36)"`
	MailboxID string `json:"mailboxId" gorm:"primaryKey;type:varchar(36)"`
}
