package domain

import "time"

// Domain 表示托管的邮件域，拥有邮箱与别名
type Domain struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"uniqueIndex;type:varchar(255);not null"`
	Enabled   bool      `json:"enabled" gorm:"default:true"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DomainAdmin 域与其管理员账户的多对多授权关系（can-access 关系）
type DomainAdmin struct {
	DomainID  string `json:"domainId" gorm:"primaryKey;type:varchar(36)"`
	AccountID string `json:"accountId" gorm:"primaryKey;type:varchar(36)"`
}
