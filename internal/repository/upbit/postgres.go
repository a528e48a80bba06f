package upbit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"coinboard/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var accountColumns = []string{"id", "user_id", "access_key", "secret_key", "created_at", "updated_at"}

type postgresRepo struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) FindByUser(ctx context.Context, userID int64) (*domain.UpbitAccount, error) {
	query, args, err := psql.Select(accountColumns...).
		From("upbit_accounts").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select upbit account: %w", err)
	}

	var out domain.UpbitAccount
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Save(ctx context.Context, a domain.UpbitAccount) (*domain.UpbitAccount, error) {
	query, args, err := psql.Insert("upbit_accounts").
		Columns("user_id", "access_key", "secret_key").
		Values(a.UserID, a.AccessKey, a.SecretKey).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET access_key = EXCLUDED.access_key, secret_key = EXCLUDED.secret_key, updated_at = now() " +
			"RETURNING " + strings.Join(accountColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert upbit account: %w", err)
	}

	var out domain.UpbitAccount
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) DeleteByUser(ctx context.Context, userID int64) error {
	query, args, err := psql.Delete("upbit_accounts").Where(sq.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete upbit account: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ExistsByUser(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM upbit_accounts WHERE user_id = $1)`, userID)
	return exists, err
}
