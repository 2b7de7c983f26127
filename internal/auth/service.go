// Package auth 提供账户认证与密码管理。
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mailadmin/backend/internal/domain"
)

var (
	// ErrInvalidPassword 无效的密码
	ErrInvalidPassword = errors.New("invalid password")
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive 账户已被禁用
	ErrAccountInactive = errors.New("account is inactive")
)

// AccountRepository 账户存储接口
type AccountRepository interface {
	GetAccount(id string) (*domain.Account, error)
	GetAccountByUsername(username string) (*domain.Account, error)
	UpdateAccount(account *domain.Account) error
	UpdateLastLogin(id string) error
}

// Service 认证服务
type Service struct {
	accountRepo AccountRepository
}

// NewService 创建认证服务
func NewService(accountRepo AccountRepository) *Service {
	return &Service{
		accountRepo: accountRepo,
	}
}

// LoginInput 登录输入
type LoginInput struct {
	Username string
	Password string
}

// Login 账户登录
func (s *Service) Login(input LoginInput) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByUsername(strings.ToLower(input.Username))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	if !CheckPassword(input.Password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// 更新最后登录时间，返回的快照同步该字段
	now := time.Now()
	if err := s.accountRepo.UpdateLastLogin(account.ID); err == nil {
		account.LastLoginAt = &now
	}

	return account, nil
}

// GetAccountByID 根据 ID 获取账户
func (s *Service) GetAccountByID(accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccount(accountID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// ChangePassword 修改密码
func (s *Service) ChangePassword(accountID, oldPassword, newPassword string) error {
	account, err := s.accountRepo.GetAccount(accountID)
	if err != nil {
		return ErrAccountNotFound
	}

	if !CheckPassword(oldPassword, account.PasswordHash) {
		return errors.New("invalid old password")
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account.PasswordHash = newHash
	return s.accountRepo.UpdateAccount(account)
}

// ValidatePassword 验证密码强度
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return errors.New("password must be at most 72 characters")
	}
	return nil
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
