package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"mailadmin/backend/internal/auth"
	"mailadmin/backend/internal/config"
	"mailadmin/backend/internal/domain"
	"mailadmin/backend/internal/storage"
	"mailadmin/backend/internal/storage/postgres"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <username> <password> [super|domain]")
		os.Exit(1)
	}

	username := os.Args[1]
	password := os.Args[2]
	role := domain.RoleSuperAdmin
	if len(os.Args) >= 4 && os.Args[3] == "domain" {
		role = domain.RoleDomainAdmin
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 连接数据库
	var store storage.Store
	switch cfg.Database.Type {
	case "postgres":
		store, err = postgres.NewStore(cfg.Database.DSN)
	case "mysql":
		store, err = postgres.NewMySQLStore(cfg.Database.DSN)
	default:
		fmt.Println("create-admin requires a database backend (MAILADMIN_DATABASE_TYPE=postgres|mysql)")
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 验证密码
	if err := auth.ValidatePassword(password); err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	// 哈希密码
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.CreateAccount(account); err != nil {
		fmt.Printf("Failed to create account: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Admin account created successfully!\n")
	fmt.Printf("  ID:       %s\n", account.ID)
	fmt.Printf("  Username: %s\n", account.Username)
	fmt.Printf("  Role:     %s\n", account.Role)
}
