package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailadmin/backend/internal/auth"
	jwtpkg "mailadmin/backend/internal/auth/jwt"
	"mailadmin/backend/internal/config"
	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/health"
	"mailadmin/backend/internal/monitoring"
	"mailadmin/backend/internal/params"
	"mailadmin/backend/internal/service"
	"mailadmin/backend/internal/storage/memory"
)

// testEnv 路由器测试环境。Prometheus 指标只能注册一次，
// 因此整个测试进程共享同一个路由器实例。
type testEnv struct {
	router      *gin.Engine
	superToken  string
	simpleToken string
}

var (
	envOnce sync.Once
	env     *testEnv
)

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	envOnce.Do(func() {
		gin.SetMode(gin.TestMode)

		store := memory.NewStore()
		log := zap.NewNop()

		// 种子数据：一个超级管理员和一个带邮箱的普通用户
		superHash, err := auth.HashPassword("Password123!")
		require.NoError(t, err)
		super := &domain.Account{
			ID:           uuid.New().String(),
			Username:     "admin",
			PasswordHash: superHash,
			Role:         domain.RoleSuperAdmin,
			IsActive:     true,
		}
		require.NoError(t, store.CreateAccount(super))

		simple := &domain.Account{
			ID:           uuid.New().String(),
			Username:     "user@example.com",
			PasswordHash: superHash,
			Role:         domain.RoleSimpleUser,
			IsActive:     true,
		}
		require.NoError(t, store.CreateAccount(simple))

		d := &domain.Domain{ID: uuid.New().String(), Name: "example.com", Enabled: true}
		require.NoError(t, store.SaveDomain(d))
		require.NoError(t, store.SaveMailbox(&domain.Mailbox{
			ID:        uuid.New().String(),
			AccountID: simple.ID,
			DomainID:  d.ID,
			Address:   "user",
			Quota:     10,
		}))

		cfg := &config.Config{}
		cfg.CORS.AllowedOrigins = []string{"*"}
		cfg.Listing.PageSize = 30

		jwtManager := jwtpkg.NewManager("test-secret-at-least-32-characters!!", "mailadmin-test", time.Hour, 24*time.Hour)
		authService := auth.NewService(store)
		crypt := auth.NewCrypt("test-session-secret")

		registry := params.NewRegistry()
		registry.Register("general", params.Options{})
		registry.AddUserParam("general", params.ParamDef{Name: "lang", Label: "界面语言", Type: "list", Default: "zh"})

		maildir := service.NewMaildirStore(t.TempDir())

		router := NewRouter(RouterDependencies{
			Config:            cfg,
			AuthService:       authService,
			IdentityService:   service.NewIdentityService(store, store, 30, log),
			QuotaService:      service.NewQuotaService(store, 30, log),
			AccountService:    service.NewAccountService(store, store, maildir, log),
			PermissionService: service.NewPermissionService(store, log),
			UserPrefsService:  service.NewUserPrefsService(store, store, registry, crypt, log),
			JWTManager:        jwtManager,
			HealthChecker:     health.NewHealthChecker(store, log),
			Metrics:           monitoring.NewMetrics(),
			Logger:            log,
		})

		superPair, err := jwtManager.GenerateTokenPair(super.ID, super.Username, string(super.Role))
		require.NoError(t, err)
		simplePair, err := jwtManager.GenerateTokenPair(simple.ID, simple.Username, string(simple.Role))
		require.NoError(t, err)

		env = &testEnv{
			router:      router,
			superToken:  superPair.AccessToken,
			simpleToken: simplePair.AccessToken,
		}
	})
	return env
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestRouter(t *testing.T) {
	e := setupRouter(t)

	t.Run("未认证请求被拒绝", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/identities/list/", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("登录颁发令牌", func(t *testing.T) {
		w := e.do(http.MethodPost, "/v1/auth/login", "", `{"username":"admin","password":"Password123!"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				AccessToken  string `json:"accessToken"`
				RefreshToken string `json:"refreshToken"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Data.AccessToken)
		assert.NotEmpty(t, resp.Data.RefreshToken)
	})

	t.Run("密码错误时登录失败", func(t *testing.T) {
		w := e.do(http.MethodPost, "/v1/auth/login", "", `{"username":"admin","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("普通用户无权访问身份列表", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/identities/list/", e.simpleToken, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("超级管理员可以访问身份列表", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/identities/list/", e.superToken, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "rows")
	})

	t.Run("普通用户可以访问个人设置", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/userprefs/profile/", e.simpleToken, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("管理员不能访问转发设置", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/userprefs/forward/", e.superToken, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("普通用户可以读取转发设置", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/userprefs/forward/", e.simpleToken, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("普通用户无权访问配额列表", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/quotas/list/", e.simpleToken, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("超级管理员可以访问配额列表", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/quotas/list/", e.superToken, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("个人资料校验失败时回填表单", func(t *testing.T) {
		body := `{"first_name":"Alice","oldpassword":"wrong","newpassword":"NewPass123!","confirmation":"NewPass123!"}`
		w := e.do(http.MethodPost, "/v1/userprefs/profile/", e.simpleToken, body)
		require.Equal(t, http.StatusOK, w.Code)

		var resp AjaxResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ko", resp.Status)
		assert.Contains(t, resp.Content, "profile-form")
		assert.Contains(t, resp.Content, "Alice")
		assert.NotEmpty(t, resp.RespMsg)
	})

	t.Run("当前账户信息", func(t *testing.T) {
		w := e.do(http.MethodGet, "/v1/auth/me", e.superToken, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "admin")
	})
}
