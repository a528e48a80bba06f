package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"coinboard/internal/config"
	"coinboard/internal/db"
	"coinboard/internal/migrate"
)

// migrator is the schema surface the commands drive.
type migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context, steps int) error
	Version(ctx context.Context) (uint, bool, error)
	Close()
}

type poolMigrator struct {
	pool *pgxpool.Pool
}

func (m poolMigrator) Up(ctx context.Context) error { return migrate.Apply(ctx, m.pool) }

func (m poolMigrator) Down(ctx context.Context, steps int) error {
	return migrate.Down(ctx, m.pool, steps)
}

func (m poolMigrator) Version(ctx context.Context) (uint, bool, error) {
	return migrate.Version(ctx, m.pool)
}

func (m poolMigrator) Close() { m.pool.Close() }

func connect(ctx context.Context) (migrator, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return poolMigrator{pool: pool}, nil
}

func newRootCmd(open func(ctx context.Context) (migrator, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back the coinboard schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	withMigrator := func(cmd *cobra.Command, fn func(m migrator) error) error {
		m, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Up(cmd.Context()); err != nil {
					return fmt.Errorf("apply migrations: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withMigrator(cmd, func(m migrator) error {
				if err := m.Down(cmd.Context(), steps); err != nil {
					return fmt.Errorf("roll back migrations: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m migrator) error {
				v, dirty, err := m.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
				return nil
			})
		},
	}

	root.AddCommand(up, down, version)
	return root
}

func main() {
	if err := newRootCmd(connect).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
