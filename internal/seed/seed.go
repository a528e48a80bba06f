package seed

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"coinboard/internal/domain"
	"coinboard/internal/importer"
	"coinboard/internal/logging"
)

//go:embed categories.yaml
var defaultCategories []byte

// UserEnsurer creates or aligns a user account idempotently.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, email, password, nickname string, role domain.Role) (*domain.User, bool, error)
}

// Admin is the bootstrap account. An empty Email skips it.
type Admin struct {
	Email    string
	Password string
}

type categorySeed struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Children    []categorySeed `yaml:"children"`
}

type seedFile struct {
	Categories []categorySeed `yaml:"categories"`
}

// Apply inserts the default category tree and the admin account. Existing rows are left alone.
func Apply(ctx context.Context, cats importer.CategoryWriter, users UserEnsurer, admin Admin, logger *zap.Logger) error {
	logger = logging.OrNop(logger).Named("seed")

	rows, err := parseCategories(defaultCategories)
	if err != nil {
		return fmt.Errorf("parse seed categories: %w", err)
	}
	res, err := importer.Import(ctx, cats, rows, logger)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	logger.Info("categories seeded", zap.Int("created", res.Created), zap.Int("existing", res.Skipped))

	if admin.Email == "" {
		logger.Info("no admin email configured, skipping admin seed")
		return nil
	}
	u, created, err := users.EnsureUser(ctx, admin.Email, admin.Password, "admin", domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	logger.Info("admin ensured", zap.Int64("id", u.ID), zap.Bool("created", created))
	return nil
}

// parseCategories flattens the nested YAML tree into importer rows.
func parseCategories(raw []byte) ([]importer.Row, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	var rows []importer.Row
	var walk func(parent string, nodes []categorySeed)
	walk = func(parent string, nodes []categorySeed) {
		for _, n := range nodes {
			rows = append(rows, importer.Row{Name: n.Name, Description: n.Description, Parent: parent})
			walk(n.Name, n.Children)
		}
	}
	walk("", f.Categories)
	return rows, nil
}
