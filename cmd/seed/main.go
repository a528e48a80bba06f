package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"coinboard/internal/cache"
	"coinboard/internal/config"
	"coinboard/internal/db"
	"coinboard/internal/logging"
	categoryrepo "coinboard/internal/repository/category"
	tokenrepo "coinboard/internal/repository/token"
	userrepo "coinboard/internal/repository/user"
	"coinboard/internal/seed"
	categorysvc "coinboard/internal/service/category"
	usersvc "coinboard/internal/service/user"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, "console", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	opts := categorysvc.Options{MaxDepth: cfg.MaxCategoryDepth, Logger: logger}
	if rdb := cache.ConnectOptional(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger); rdb != nil {
		defer rdb.Close()
		opts.Cache = cache.NewTreeCache(rdb, cfg.CategoryCacheTTL, logger)
	}
	categories := categorysvc.New(categoryrepo.NewPostgres(pool, logger), opts)
	users := usersvc.New(userrepo.NewPostgres(db.SQLX(pool), logger), tokenrepo.NewPostgres(pool), cfg.AccessTokenTTL, logger)

	admin := seed.Admin{Email: cfg.SeedAdminEmail, Password: cfg.SeedAdminPassword}
	if err := seed.Apply(ctx, categories, users, admin, logger); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied")
}
