package service

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/params"
	"mailadmin/backend/internal/storage"
)

// SessionKeyPassword 会话中加密存放的邮箱密码键。
// webmail 侧的 IMAP 登录会复用它。
const SessionKeyPassword = "password"

var (
	// ErrNoMailbox 账户没有邮箱
	ErrNoMailbox = errors.New("no mailbox for this account")
	// ErrBadDestination 转发目的地址格式无效
	ErrBadDestination = errors.New("invalid destination address")
	// ErrPasswordMismatch 两次输入的密码不一致
	ErrPasswordMismatch = errors.New("password confirmation mismatch")
	// ErrBadOldPassword 旧密码错误
	ErrBadOldPassword = errors.New("invalid old password")
)

var addressRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// PasswordManager 密码管理协作者。外部认证源（如 LDAP）注册后
// 声明接管某账户的密码，个人资料表单随之隐藏密码字段。
type PasswordManager interface {
	ManagesPassword(account *domain.Account) bool
}

// UserPrefsService 用户偏好服务：转发、个人资料、参数
type UserPrefsService struct {
	store            storage.Store
	sessions         storage.SessionRepository
	registry         *params.Registry
	crypt            *auth.Crypt
	passwordManagers []PasswordManager
	log              *zap.Logger
}

// NewUserPrefsService 创建用户偏好服务
func NewUserPrefsService(store storage.Store, sessions storage.SessionRepository, registry *params.Registry, crypt *auth.Crypt, log *zap.Logger) *UserPrefsService {
	return &UserPrefsService{
		store:    store,
		sessions: sessions,
		registry: registry,
		crypt:    crypt,
		log:      log,
	}
}

// RegisterPasswordManager 注册密码管理协作者
func (s *UserPrefsService) RegisterPasswordManager(pm PasswordManager) {
	s.passwordManagers = append(s.passwordManagers, pm)
}

func (s *UserPrefsService) passwordManaged(account *domain.Account) bool {
	for _, pm := range s.passwordManagers {
		if pm.ManagesPassword(account) {
			return true
		}
	}
	return false
}

// ========== 转发 ==========

// ForwardForm 转发设置表单
type ForwardForm struct {
	Destinations []string `json:"destinations"`
	KeepCopies   bool     `json:"keepcopies"`
}

// GetForward 读取调用者的转发设置。
// 转发即挂在本人邮箱地址上的别名：外部目的地为转发地址，
// 内部目的地包含本人邮箱时表示保留副本。
func (s *UserPrefsService) GetForward(caller *domain.Account) (*ForwardForm, error) {
	mailbox, err := s.store.GetMailboxByAccount(caller.ID)
	if err != nil {
		return nil, ErrNoMailbox
	}

	form := &ForwardForm{Destinations: []string{}}

	alias, err := s.store.GetAliasByAddress(mailbox.Address, mailbox.DomainID)
	if err != nil {
		if errors.Is(err, storage.ErrAliasNotFound) {
			return form, nil
		}
		return nil, err
	}

	form.Destinations = alias.ExtList()

	mailboxIDs, err := s.store.AliasMailboxIDs(alias.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range mailboxIDs {
		if id == mailbox.ID {
			form.KeepCopies = true
			break
		}
	}
	return form, nil
}

// SetForward 保存调用者的转发设置。
// 所有目的地址在任何写入发生前完成格式校验，校验失败时
// 别名保持原状。保留副本通过把本人邮箱加入内部目的地实现。
func (s *UserPrefsService) SetForward(caller *domain.Account, form *ForwardForm) error {
	mailbox, err := s.store.GetMailboxByAccount(caller.ID)
	if err != nil {
		return ErrNoMailbox
	}

	destinations := make([]string, 0, len(form.Destinations))
	for _, raw := range form.Destinations {
		dest := strings.TrimSpace(strings.ToLower(raw))
		if dest == "" {
			continue
		}
		if !addressRegex.MatchString(dest) {
			return ErrBadDestination
		}
		destinations = append(destinations, dest)
	}

	var internal []string
	if form.KeepCopies {
		internal = []string{mailbox.ID}
	}

	return s.store.WithTransaction(func(tx storage.Store) error {
		alias, err := tx.GetAliasByAddress(mailbox.Address, mailbox.DomainID)
		if err != nil {
			if !errors.Is(err, storage.ErrAliasNotFound) {
				return err
			}
			alias = &domain.Alias{
				ID:       uuid.New().String(),
				DomainID: mailbox.DomainID,
				Address:  mailbox.Address,
				Enabled:  caller.IsActive,
			}
		}
		alias.SetExtList(destinations)
		return tx.SaveAlias(alias, internal)
	})
}

// ========== 个人资料 ==========

// ProfileForm 个人资料表单
type ProfileForm struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	PasswordEditable bool   `json:"password_editable"`
}

// ProfileInput 个人资料更新输入
type ProfileInput struct {
	FirstName    string
	LastName     string
	OldPassword  string
	NewPassword  string
	Confirmation string
}

// GetProfile 读取个人资料表单。
// 密码由外部认证源管理时密码字段不可编辑。
func (s *UserPrefsService) GetProfile(caller *domain.Account) *ProfileForm {
	return &ProfileForm{
		FirstName:        caller.FirstName,
		LastName:         caller.LastName,
		PasswordEditable: !s.passwordManaged(caller),
	}
}

// UpdateProfile 更新个人资料。密码变更要求旧密码正确且两次
// 输入一致；成功后把新密码加密存入会话供 webmail 复用。
func (s *UserPrefsService) UpdateProfile(caller *domain.Account, input ProfileInput) error {
	account, err := s.store.GetAccount(caller.ID)
	if err != nil {
		return err
	}

	changePassword := input.NewPassword != "" && !s.passwordManaged(account)
	if changePassword {
		if !auth.CheckPassword(input.OldPassword, account.PasswordHash) {
			return ErrBadOldPassword
		}
		if input.NewPassword != input.Confirmation {
			return ErrPasswordMismatch
		}
		if err := auth.ValidatePassword(input.NewPassword); err != nil {
			return err
		}
		hash, err := auth.HashPassword(input.NewPassword)
		if err != nil {
			return err
		}
		account.PasswordHash = hash
	}

	account.FirstName = input.FirstName
	account.LastName = input.LastName
	if err := s.store.UpdateAccount(account); err != nil {
		return err
	}

	if changePassword {
		encrypted, err := s.crypt.Encrypt(input.Confirmation)
		if err != nil {
			return err
		}
		if err := s.sessions.SetSessionValue(account.ID, SessionKeyPassword, encrypted); err != nil {
			s.log.Warn("failed to store session password", zap.Error(err))
		}
	}
	return nil
}

// ========== 参数 ==========

// ReservedPrefKey 偏好表单中保留的提交按钮键，保存时跳过
const ReservedPrefKey = "update"

// ParamView 一个可编辑参数的展示元数据
type ParamView struct {
	App   string `json:"app"`
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SavePreferences 保存 app.name=value 形式的偏好键值。
// 保留键 update 跳过；格式错误或未注册的参数拒绝整个请求。
func (s *UserPrefsService) SavePreferences(caller *domain.Account, values map[string]string) error {
	type pending struct {
		app, name, value string
	}
	toSave := make([]pending, 0, len(values))

	for key, value := range values {
		if key == ReservedPrefKey {
			continue
		}
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return ErrInvalidRequest
		}
		if _, ok := s.registry.Lookup(parts[0], parts[1]); !ok {
			return ErrInvalidRequest
		}
		toSave = append(toSave, pending{app: parts[0], name: parts[1], value: value})
	}

	for _, p := range toSave {
		if err := s.store.SaveUserSetting(caller.ID, p.app, p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}

// EditableParameters 返回调用者可编辑的参数列表。
// 应用按字典序，参数按注册顺序；无参数的应用跳过；要求邮箱的
// 应用对无邮箱的调用者不可见。值取已保存的偏好，否则取默认值。
func (s *UserPrefsService) EditableParameters(caller *domain.Account) ([]ParamView, error) {
	hasMailbox := true
	if _, err := s.store.GetMailboxByAccount(caller.ID); err != nil {
		hasMailbox = false
	}

	views := make([]ParamView, 0)
	for _, app := range s.registry.Apps() {
		defs := s.registry.UserParams(app)
		if len(defs) == 0 {
			continue
		}
		if s.registry.NeedsMailbox(app) && !hasMailbox {
			continue
		}
		for _, def := range defs {
			value := def.Default
			if saved, err := s.store.GetUserSetting(caller.ID, app, def.Name); err == nil {
				value = saved
			}
			views = append(views, ParamView{
				App:   app,
				Name:  def.Name,
				Label: def.Label,
				Type:  def.Type,
				Value: value,
			})
		}
	}
	return views, nil
}
