package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mailadmin/backend/internal/auth"
	jwtpkg "mailadmin/backend/internal/auth/jwt"
	"mailadmin/backend/internal/config"
	"mailadmin/backend/internal/health"
	"mailadmin/backend/internal/logger"
	"mailadmin/backend/internal/monitoring"
	"mailadmin/backend/internal/params"
	"mailadmin/backend/internal/service"
	"mailadmin/backend/internal/storage"
	"mailadmin/backend/internal/storage/memory"
	"mailadmin/backend/internal/storage/postgres"
	redisstore "mailadmin/backend/internal/storage/redis"
	httptransport "mailadmin/backend/internal/transport/http"
)

// main 启动邮件托管控制台的 HTTP API 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.LogFile,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting mailadmin server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, err := initializeStorage(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}
	defer store.Close()

	// 会话存储：配置了 Redis 时走缓存，否则落数据库
	var sessions storage.SessionRepository = store
	var sessionCache *redisstore.SessionCache
	if cfg.Redis.Address != "" {
		sessionCache, err = redisstore.NewSessionCache(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Session.TTL,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to redis: %v", err))
		}
		defer sessionCache.Close()
		sessions = sessionCache
		log.Info("using redis session store", zap.String("address", cfg.Redis.Address))
	} else {
		log.Info("using database session store")
	}

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, log)
	if sessionCache != nil {
		healthChecker.AddCheck("redis", sessionCache)
	}

	// 初始化认证
	authService := auth.NewService(store)
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	crypt := auth.NewCrypt(cfg.Session.Secret)

	// 注册用户偏好参数
	registry := newParamRegistry(cfg)

	// 初始化服务层
	maildir := service.NewMaildirStore(cfg.Maildir.Root)
	identityService := service.NewIdentityService(store, sessions, cfg.Listing.PageSize, log)
	quotaService := service.NewQuotaService(store, cfg.Listing.PageSize, log)
	accountService := service.NewAccountService(store, sessions, maildir, log)
	permissionService := service.NewPermissionService(store, log)
	userPrefsService := service.NewUserPrefsService(store, sessions, registry, crypt, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:            cfg,
		AuthService:       authService,
		IdentityService:   identityService,
		QuotaService:      quotaService,
		AccountService:    accountService,
		PermissionService: permissionService,
		UserPrefsService:  userPrefsService,
		JWTManager:        jwtManager,
		HealthChecker:     healthChecker,
		Metrics:           metrics,
		Logger:            log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStorage 按配置选择数据库实现
func initializeStorage(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.Database.Type {
	case "postgres":
		log.Info("using postgres storage")
		return postgres.NewStore(cfg.Database.DSN)
	case "mysql":
		log.Info("using mysql storage")
		return postgres.NewMySQLStore(cfg.Database.DSN)
	case "":
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// newParamRegistry 注册各应用的用户偏好参数
func newParamRegistry(cfg *config.Config) *params.Registry {
	registry := params.NewRegistry()

	registry.Register("general", params.Options{})
	registry.AddUserParam("general", params.ParamDef{
		Name:    "lang",
		Label:   "界面语言",
		Type:    "list",
		Default: "zh",
	})
	registry.AddUserParam("general", params.ParamDef{
		Name:    "items_per_page",
		Label:   "每页条目数",
		Type:    "int",
		Default: fmt.Sprintf("%d", cfg.Listing.PageSize),
	})

	registry.Register("webmail", params.Options{NeedsMailbox: true})
	registry.AddUserParam("webmail", params.ParamDef{
		Name:    "messages_per_page",
		Label:   "每页邮件数",
		Type:    "int",
		Default: "40",
	})
	registry.AddUserParam("webmail", params.ParamDef{
		Name:    "signature",
		Label:   "邮件签名",
		Type:    "text",
		Default: "",
	})

	return registry
}
