package httptransport

import (
	"bytes"
	"fmt"
	"html/template"
)

// 列表与表单的 HTML 片段模板。前端拿到片段后就地替换，
// 与异步编辑器的 status/content/respmsg 信封配合。
var fragments = template.Must(template.New("fragments").Parse(`
{{define "identity_rows"}}
{{range .}}<tr class="identity {{index .Tags 0}}">
<td class="identity-name">{{.Identity}}</td>
<td class="identity-rcpt">{{.NameOrRcpt}}</td>
<td class="identity-tags">{{range .Tags}}<span class="label">{{.}}</span> {{end}}</td>
</tr>
{{end}}
{{end}}

{{define "paginbar"}}
<ul class="pagination">
{{$current := .Number}}
{{range .PageList}}<li{{if eq . $current}} class="active"{{end}}><a href="?page={{.}}">{{.}}</a></li>
{{end}}</ul>
{{end}}

{{define "quota_table"}}
<table class="table quotas">
<thead><tr>
<th><a href="?sort_order=address">地址</a></th>
<th><a href="?sort_order=quota">配额 (MB)</a></th>
<th><a href="?sort_order=quota_value__bytes">已用</a></th>
<th><a href="?sort_order=quota_usage">使用率</a></th>
</tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Address}}</td>
<td>{{.Quota}}</td>
<td>{{.Bytes}}</td>
<td>{{printf "%.1f" .Usage}}%</td>
</tr>
{{end}}</tbody>
</table>
{{end}}

{{define "identities_page"}}
<div id="identities">
<form id="identities-search">
<input type="text" name="searchquery" placeholder="搜索身份">
<select name="idtfilter">
<option value="">全部类型</option>
<option value="account">账户</option>
<option value="alias">别名</option>
<option value="forward">转发</option>
<option value="dlist">邮件列表</option>
</select>
<select name="grpfilter">
<option value="">全部组</option>
<option value="superadmins">超级管理员</option>
<option value="domainadmins">域管理员</option>
<option value="simpleusers">普通用户</option>
</select>
</form>
<table class="table identities">
<thead><tr>
<th><a href="?sort_order=identity">身份</a></th>
<th><a href="?sort_order=name_or_rcpt">姓名/收件人</a></th>
<th><a href="?sort_order=tags">类型</a></th>
</tr></thead>
<tbody id="identities-body"></tbody>
</table>
</div>
{{end}}

{{define "forward_form"}}
<form id="forward-form" method="post">
<label>转发地址（每行一个）</label>
<textarea name="dest">{{range .Destinations}}{{.}}
{{end}}</textarea>
<label><input type="checkbox" name="keepcopies"{{if .KeepCopies}} checked{{end}}> 在本地保留副本</label>
<button type="submit" name="update">保存</button>
</form>
{{end}}

{{define "profile_form"}}
<form id="profile-form" method="post">
<label>名</label><input type="text" name="first_name" value="{{.FirstName}}">
<label>姓</label><input type="text" name="last_name" value="{{.LastName}}">
{{if .PasswordEditable}}
<label>旧密码</label><input type="password" name="oldpassword">
<label>新密码</label><input type="password" name="newpassword">
<label>确认密码</label><input type="password" name="confirmation">
{{end}}
<button type="submit" name="update">保存</button>
</form>
{{end}}

{{define "preferences_form"}}
<form id="preferences-form" method="post">
{{range .}}
<div class="param" data-app="{{.App}}">
<label>{{.Label}}</label>
<input type="text" name="{{.App}}.{{.Name}}" value="{{.Value}}" data-type="{{.Type}}">
</div>
{{end}}
<button type="submit" name="update">保存</button>
</form>
{{end}}

{{define "userprefs_page"}}
<div id="userprefs">
<ul class="nav">
<li><a href="/v1/userprefs/profile/">个人资料</a></li>
<li><a href="/v1/userprefs/forward/">转发</a></li>
<li><a href="/v1/userprefs/preferences/">参数</a></li>
</ul>
<div id="userprefs-content"></div>
</div>
{{end}}
`))

// renderFragment 渲染命名模板为 HTML 字符串
func renderFragment(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// paginbarData 分页条的模板数据
type paginbarData struct {
	Number   int
	PageList []int
}

func newPaginbarData(number, pages int) paginbarData {
	list := make([]int, pages)
	for i := range list {
		list[i] = i + 1
	}
	return paginbarData{Number: number, PageList: list}
}
