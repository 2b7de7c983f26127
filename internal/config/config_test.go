package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"MAILADMIN_JWT_SECRET",
		"MAILADMIN_SERVER_HOST",
		"MAILADMIN_SERVER_PORT",
		"MAILADMIN_SESSION_SECRET",
		"MAILADMIN_MAILDIR_ROOT",
		"MAILADMIN_LISTING_PAGE_SIZE",
		"MAILADMIN_LOG_LEVEL",
		"MAILADMIN_LOG_DEVELOPMENT",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	t.Run("加载默认配置成功", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		// 设置必需的JWT密钥
		os.Setenv("MAILADMIN_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Equal(t, "mailadmin", cfg.JWT.Issuer)
		assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
		assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiry)
		assert.Equal(t, "/var/vmail", cfg.Maildir.Root)
		assert.Equal(t, 30, cfg.Listing.PageSize)
		assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	})

	t.Run("会话密钥默认复用JWT密钥", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
		os.Setenv("MAILADMIN_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")

		cfg, err := Load()
		assert.NoError(t, err)
		assert.Equal(t, cfg.JWT.Secret, cfg.Session.Secret)
	})

	t.Run("缺少JWT密钥时报错", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("JWT密钥过短时报错", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
		os.Setenv("MAILADMIN_JWT_SECRET", "short")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
		os.Setenv("MAILADMIN_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")
		os.Setenv("MAILADMIN_SERVER_PORT", "9090")
		os.Setenv("MAILADMIN_MAILDIR_ROOT", "/srv/vmail")
		os.Setenv("MAILADMIN_LISTING_PAGE_SIZE", "50")

		cfg, err := Load()
		assert.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "/srv/vmail", cfg.Maildir.Root)
		assert.Equal(t, 50, cfg.Listing.PageSize)
	})
}
