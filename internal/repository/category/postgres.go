package category

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"coinboard/internal/domain"
	"coinboard/internal/logging"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepo struct {
	db     querier
	logger *zap.Logger
}

type postgresStore struct {
	*postgresRepo
	pool *pgxpool.Pool
}

// NewPostgres returns a Store backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Store {
	logger = logging.OrNop(logger).Named("category_repo")
	return &postgresStore{
		postgresRepo: &postgresRepo{db: pool, logger: logger},
		pool:         pool,
	}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(tx Repository) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&postgresRepo{db: tx, logger: s.logger}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (r *postgresRepo) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	return r.queryOne(ctx, findByIDQuery(id))
}

func (r *postgresRepo) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.queryOne(ctx, findByNameQuery(name))
}

func (r *postgresRepo) FindRootCategories(ctx context.Context) ([]domain.Category, error) {
	return r.queryMany(ctx, findRootsQuery())
}

func (r *postgresRepo) FindByParentID(ctx context.Context, parentID int64) ([]domain.Category, error) {
	return r.queryMany(ctx, findByParentQuery(parentID))
}

func (r *postgresRepo) FindAll(ctx context.Context) ([]domain.Category, error) {
	return r.queryMany(ctx, findAllQuery())
}

func (r *postgresRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	q, args, err := existsByNameQuery(name).ToSql()
	if err != nil {
		return false, err
	}
	var exists bool
	if err := r.db.QueryRow(ctx, q, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *postgresRepo) CountChildren(ctx context.Context, id int64) (int, error) {
	q, args, err := countChildrenQuery(id).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *postgresRepo) Save(ctx context.Context, c domain.Category) (*domain.Category, error) {
	var builder sq.Sqlizer = insertQuery(c)
	if c.ID != 0 {
		builder = updateQuery(c)
	}
	q, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	out, err := scanCategory(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		r.logger.Debug("save failed", zap.Int64("id", c.ID), zap.String("name", c.Name), zap.Error(err))
		return nil, mapWriteError(err)
	}
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	q, args, err := deleteQuery(id).ToSql()
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.ErrHasChildren
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteSubtree(ctx context.Context, id int64) ([]domain.Category, error) {
	removed, err := r.collect(r.db.Query(ctx, deleteSubtreeSQL, id))
	if err != nil {
		return nil, err
	}
	if len(removed) == 0 {
		return nil, domain.ErrCategoryNotFound
	}
	return removed, nil
}

func (r *postgresRepo) ReparentChildren(ctx context.Context, fromID int64, toID *int64) ([]domain.Category, error) {
	q, args, err := reparentQuery(fromID, toID).ToSql()
	if err != nil {
		return nil, err
	}
	moved, err := r.collect(r.db.Query(ctx, q, args...))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return moved, nil
}

func (r *postgresRepo) LockHierarchy(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, hierarchyLockKey)
	return err
}

func (r *postgresRepo) queryOne(ctx context.Context, b sq.SelectBuilder) (*domain.Category, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	c, err := scanCategory(r.db.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *postgresRepo) queryMany(ctx context.Context, b sq.SelectBuilder) ([]domain.Category, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return r.collect(r.db.Query(ctx, q, args...))
}

// collect scans every row of a query returning category columns.
func (r *postgresRepo) collect(rows pgx.Rows, err error) ([]domain.Category, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ParentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// mapWriteError turns constraint violations into domain errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return domain.ErrDuplicateCategoryName
	case pgForeignKeyViolation:
		return domain.ErrParentNotFound
	case pgCheckViolation:
		return domain.ErrCyclicHierarchy
	}
	return err
}
