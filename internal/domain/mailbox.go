package domain

import "time"

// Mailbox 表示账户在某个域下的邮箱。
// 每个账户至多拥有一个邮箱；(Address, DomainID) 组合在全局唯一。
type Mailbox struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AccountID string    `json:"accountId" gorm:"type:varchar(36);uniqueIndex;not null"`
	DomainID  string    `json:"domainId" gorm:"type:varchar(36);uniqueIndex:idx_mailboxes_address_domain,priority:2;not null"`
	Address   string    `json:"address" gorm:"type:varchar(255);uniqueIndex:idx_mailboxes_address_domain,priority:1;not null"` // 本地部分，不含 @domain
	Quota     int       `json:"quota" gorm:"default:0"`                                                                       // 配额上限，单位 MB，0 表示不限制
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FullAddress 拼接完整邮箱地址
func (m *Mailbox) FullAddress(domainName string) string {
	return m.Address + "@" + domainName
}
