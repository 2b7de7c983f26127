package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Crypt 对称加密器。用户在个人资料中修改密码后，新密码需要
// 加密后存入会话，供 webmail 侧的 IMAP 登录复用。
type Crypt struct {
	key []byte
}

// NewCrypt 从配置密钥派生加密器
func NewCrypt(secret string) *Crypt {
	key := sha256.Sum256([]byte(secret))
	return &Crypt{key: key[:]}
}

// Encrypt 加密明文，返回 base64 编码的 nonce+密文
func (c *Crypt) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密 Encrypt 的输出
func (c *Crypt) Decrypt(encoded string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to build cipher: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.New("malformed ciphertext")
	}
	if len(sealed) < aead.NonceSize() {
		return "", errors.New("malformed ciphertext")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.New("decryption failed")
	}
	return string(plaintext), nil
}
