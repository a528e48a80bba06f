package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coinboard/internal/cache"
	"coinboard/internal/config"
	"coinboard/internal/db"
	"coinboard/internal/importer"
	"coinboard/internal/logging"
	categoryrepo "coinboard/internal/repository/category"
	categorysvc "coinboard/internal/service/category"
)

// backend is what an import run writes through, plus its cleanup.
type backend struct {
	writer importer.CategoryWriter
	logger *zap.Logger
	close  func()
}

func connect(ctx context.Context) (*backend, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, "console", true)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	closers := []func(){pool.Close}
	opts := categorysvc.Options{MaxDepth: cfg.MaxCategoryDepth, Logger: logger}
	if rdb := cache.ConnectOptional(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger); rdb != nil {
		closers = append(closers, func() { rdb.Close() })
		opts.Cache = cache.NewTreeCache(rdb, cfg.CategoryCacheTTL, logger)
	}

	return &backend{
		writer: categorysvc.New(categoryrepo.NewPostgres(pool, logger), opts),
		logger: logger,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			_ = logger.Sync()
		},
	}, nil
}

func newRootCmd(open func(ctx context.Context) (*backend, error)) *cobra.Command {
	var filePath string
	root := &cobra.Command{
		Use:           "importer --file categories.csv",
		Short:         "Import categories from a name,description,parent CSV",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.close()

			start := time.Now()
			res, err := importer.NewCSVImporter(f, b.writer, b.logger).Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("import failed after %d created: %w", res.Created, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d categories (%d already present) in %s\n",
				res.Created, res.Skipped, time.Since(start).Truncate(time.Millisecond))
			return nil
		},
	}
	root.Flags().StringVar(&filePath, "file", "", "path to a name,description,parent category CSV")
	_ = root.MarkFlagRequired("file")
	return root
}

func main() {
	if err := newRootCmd(connect).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
