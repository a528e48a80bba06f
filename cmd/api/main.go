package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"coinboard/internal/cache"
	"coinboard/internal/config"
	"coinboard/internal/db"
	"coinboard/internal/events"
	"coinboard/internal/httpserver"
	"coinboard/internal/logging"
	categoryrepo "coinboard/internal/repository/category"
	tokenrepo "coinboard/internal/repository/token"
	upbitrepo "coinboard/internal/repository/upbit"
	userrepo "coinboard/internal/repository/user"
	categorysvc "coinboard/internal/service/category"
	upbitsvc "coinboard/internal/service/upbit"
	usersvc "coinboard/internal/service/user"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding, cfg.IsDev())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolOpts := db.DefaultPoolOptions()
	poolOpts.MaxConns = int32(cfg.DBMaxConns)
	poolOpts.Logger = logger
	dbpool, err := db.Open(ctx, cfg.DBConnString, poolOpts)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()
	sqlxDB := db.SQLX(dbpool)

	opts := categorysvc.Options{MaxDepth: cfg.MaxCategoryDepth, Logger: logger}
	if rdb := cache.ConnectOptional(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger); rdb != nil {
		defer rdb.Close()
		opts.Cache = cache.NewTreeCache(rdb, cfg.CategoryCacheTTL, logger)
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaCategoryTopic, logger)
		defer pub.Close()
		opts.Publisher = pub
		logger.Info("category events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaCategoryTopic))
	} else {
		opts.Publisher = events.Noop{}
	}

	categoryService := categorysvc.New(categoryrepo.NewPostgres(dbpool, logger), opts)
	userService := usersvc.New(userrepo.NewPostgres(sqlxDB, logger), tokenrepo.NewPostgres(dbpool), cfg.AccessTokenTTL, logger)
	upbitService := upbitsvc.New(upbitrepo.NewPostgres(sqlxDB), cfg.UpbitSecretKey, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		CategorySvc: categoryService,
		UserSvc:     userService,
		UpbitSvc:    upbitService,
	}, cfg.CORSOrigins, cfg.ShutdownTimeout)
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
