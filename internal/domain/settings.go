package domain

import "time"

// UserSetting 按 (账户, 应用, 参数名) 保存的用户偏好值
type UserSetting struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AccountID string    `json:"accountId" gorm:"type:varchar(36);uniqueIndex:idx_user_settings_key,priority:1;not null"`
	App       string    `json:"app" gorm:"type:varchar(100);uniqueIndex:idx_user_settings_key,priority:2;not null"`
	Name      string    `json:"name" gorm:"type:varchar(100);uniqueIndex:idx_user_settings_key,priority:3;not null"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionValue 数据库后端的会话键值存储。
// 配置了 Redis 时会话改走缓存，该表不再使用。
type SessionValue struct {
	AccountID string    `json:"accountId" gorm:"primaryKey;type:varchar(36)"`
	Key       string    `json:"key" gorm:"column:session_key;primaryKey;type:varchar(100)"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updatedAt"`
}
