// Package listing 提供列表接口共用的排序参数解析与分页计算。
package listing

import "errors"

// DefaultPageSize 列表接口的默认每页条目数
const DefaultPageSize = 30

// ErrInvalidSortKey 排序键不在白名单内
var ErrInvalidSortKey = errors.New("invalid sort key")

// SortOrder 解析形如 "-quota_usage" 的排序参数。
// 前导 '-' 表示降序；raw 为空时使用 def；allowed 非空时校验白名单。
func SortOrder(raw, def string, allowed []string) (key string, desc bool, err error) {
	if raw == "" {
		raw = def
	}
	if len(raw) > 0 && raw[0] == '-' {
		desc = true
		raw = raw[1:]
	}
	if len(allowed) > 0 {
		found := false
		for _, a := range allowed {
			if raw == a {
				found = true
				break
			}
		}
		if !found {
			return "", false, ErrInvalidSortKey
		}
	}
	return raw, desc, nil
}

// Page 一页的切片边界与页码信息
type Page struct {
	Number int // 当前页码，从 1 开始
	Start  int // 切片起始下标
	End    int // 切片结束下标（不含）
	Pages  int // 总页数
}

// Paginate 计算分页。页码越界时返回 nil，由调用方转换为
// 零长度响应；空列表的第一页是合法的空页。
func Paginate(total, number, size int) *Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if number < 1 {
		return nil
	}
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if number > pages {
		return nil
	}
	start := (number - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return &Page{Number: number, Start: start, End: end, Pages: pages}
}
