// Package params 维护按应用划分的用户偏好参数定义。
// Registry 在进程启动时构造一次并按引用传入需要它的服务，
// 不存在包级可变状态。
package params

import "sort"

// ParamDef 一个用户可编辑参数的定义
type ParamDef struct {
	Name    string // 参数名，请求中以 app.name 出现
	Label   string // 展示名称
	Type    string // 控件类型：string / int / text / list
	Default string // 默认值
}

// Options 应用级选项
type Options struct {
	NeedsMailbox bool // 为 true 时，无邮箱的用户看不到该应用的参数
}

type appEntry struct {
	options Options
	defs    []ParamDef // 保持注册顺序
	index   map[string]int
}

// Registry 参数注册表
type Registry struct {
	apps map[string]*appEntry
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{apps: make(map[string]*appEntry)}
}

// Register 注册应用及其选项，重复注册覆盖选项并保留已有参数
func (r *Registry) Register(app string, opts Options) {
	entry := r.entry(app)
	entry.options = opts
}

// AddUserParam 向应用追加一个用户参数定义，同名参数覆盖原定义
func (r *Registry) AddUserParam(app string, def ParamDef) {
	entry := r.entry(app)
	if i, ok := entry.index[def.Name]; ok {
		entry.defs[i] = def
		return
	}
	entry.index[def.Name] = len(entry.defs)
	entry.defs = append(entry.defs, def)
}

// Apps 返回已注册应用名，按字典序
func (r *Registry) Apps() []string {
	names := make([]string, 0, len(r.apps))
	for name := range r.apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NeedsMailbox 判断应用参数是否要求用户拥有邮箱
func (r *Registry) NeedsMailbox(app string) bool {
	if entry, ok := r.apps[app]; ok {
		return entry.options.NeedsMailbox
	}
	return false
}

// UserParams 返回应用的参数定义，按注册顺序
func (r *Registry) UserParams(app string) []ParamDef {
	if entry, ok := r.apps[app]; ok {
		return entry.defs
	}
	return nil
}

// Lookup 查找参数定义
func (r *Registry) Lookup(app, name string) (ParamDef, bool) {
	entry, ok := r.apps[app]
	if !ok {
		return ParamDef{}, false
	}
	i, ok := entry.index[name]
	if !ok {
		return ParamDef{}, false
	}
	return entry.defs[i], true
}

func (r *Registry) entry(app string) *appEntry {
	entry, ok := r.apps[app]
	if !ok {
		entry = &appEntry{index: make(map[string]int)}
		r.apps[app] = entry
	}
	return entry
}
