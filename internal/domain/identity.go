package domain

// IdentityKind 身份投影的来源类型
type IdentityKind string

const (
	// IdentityAccount 来源为用户账户
	IdentityAccount IdentityKind = "account"
	// IdentityAlias 来源为转发别名
	IdentityAlias IdentityKind = "alias"
)

// Identity 是账户与别名的统一只读投影，仅用于列表展示，不落库。
// Identity 字段是排序主键（用户名或完整别名地址）；Tags 的首个元素
// 是主类型标签，tags 排序只比较该元素。
type Identity struct {
	Kind       IdentityKind `json:"kind"`
	Identity   string       `json:"identity"`
	NameOrRcpt string       `json:"nameOrRcpt"`
	Tags       []string     `json:"tags"`
}
