package domain

// QuotaBytesPerMB 配额上限从 MB 到字节的换算因子。
// 必须是 1048576（2^20）而不是 1000000，使用率计算依赖该值。
const QuotaBytesPerMB = 1048576

// QuotaUsage 记录邮箱已用的存储字节数。
// 按完整地址（address@domain）作为主键，与邮箱记录分离存放。
type QuotaUsage struct {
	Username string `json:"username" gorm:"primaryKey;type:varchar(255)"` // 完整地址 address@domain
	Bytes    int64  `json:"bytes" gorm:"default:0"`
}

// QuotaListing 配额列表的一行，Usage 为计算列
type QuotaListing struct {
	Address string  `json:"address"` // 完整地址
	Quota   int     `json:"quota"`   // 配额上限（MB）
	Bytes   int64   `json:"bytes"`   // 已用字节数
	Usage   float64 `json:"usage" gorm:"column:usage_pct"` // 使用率百分比
}
