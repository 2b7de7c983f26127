package postgres

// 配额列表的计算列按方言生成。完整地址由 mailboxes.address 与
// domains.name 拼接；用量百分比为 bytes / (quota * 1048576) * 100，
// PostgreSQL 需要显式转成浮点避免整除截断，MySQL 的除法本身
// 返回小数。
func quotaExprs(dialect string) (fullAddr, usage string) {
	switch dialect {
	case "mysql":
		fullAddr = "CONCAT(mailboxes.address, '@', domains.name)"
		usage = "(COALESCE(quota_usages.bytes, 0) / (CAST(mailboxes.quota AS SIGNED) * 1048576)) * 100"
	default:
		fullAddr = "mailboxes.address || '@' || domains.name"
		usage = "(COALESCE(quota_usages.bytes, 0)::float / (CAST(mailboxes.quota AS BIGINT) * 1048576)) * 100"
	}
	return fullAddr, usage
}

// quotaOrderColumn 将排序键映射为 SQL 排序表达式
func quotaOrderColumn(sortKey, fullAddr, usage string) string {
	switch sortKey {
	case "quota":
		return "mailboxes.quota"
	case "quota_value__bytes":
		return "COALESCE(quota_usages.bytes, 0)"
	case "quota_usage":
		return usage
	default:
		return fullAddr
	}
}
