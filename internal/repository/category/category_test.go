package category

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinboard/internal/domain"
	"coinboard/internal/migrate"
)

func TestPostgres_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	root, err := repo.Save(ctx, domain.Category{Name: "General"})
	require.NoError(t, err)
	require.NotZero(t, root.ID)

	child, err := repo.Save(ctx, domain.Category{Name: "Trading", Description: "desk", ParentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, *child.ParentID)

	got, err := repo.FindByName(ctx, "Trading")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, child.ID, got.ID)
	assert.Equal(t, "desk", got.Description)

	missing, err := repo.FindByName(ctx, "Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	roots, err := repo.FindRootCategories(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)

	children, err := repo.FindByParentID(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)

	exists, err := repo.ExistsByName(ctx, "General")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPostgres_ConstraintMapping(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	root, err := repo.Save(ctx, domain.Category{Name: "General"})
	require.NoError(t, err)

	_, err = repo.Save(ctx, domain.Category{Name: "General"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCategoryName)

	missing := int64(999999)
	_, err = repo.Save(ctx, domain.Category{Name: "Orphan", ParentID: &missing})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)

	_, err = repo.Save(ctx, domain.Category{Name: "Child", ParentID: &root.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Delete(ctx, root.ID), domain.ErrHasChildren)

	other, err := repo.Save(ctx, domain.Category{Name: "Other"})
	require.NoError(t, err)
	leaf, err := repo.Save(ctx, domain.Category{Name: "Leaf", ParentID: &other.ID})
	require.NoError(t, err)
	moved, err := repo.ReparentChildren(ctx, other.ID, &root.ID)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, leaf.ID, moved[0].ID)
	assert.Equal(t, root.ID, *moved[0].ParentID)

	removed, err := repo.DeleteSubtree(ctx, root.ID)
	require.NoError(t, err)
	names := []string{}
	for _, c := range removed {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"General", "Child", "Leaf"}, names)

	_, err = repo.DeleteSubtree(ctx, root.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestPostgres_InTxRollsBack(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	err := repo.InTx(ctx, func(tx Repository) error {
		if err := tx.LockHierarchy(ctx); err != nil {
			return err
		}
		if _, err := tx.Save(ctx, domain.Category{Name: "Temp"}); err != nil {
			return err
		}
		return domain.ErrHasChildren
	})
	require.ErrorIs(t, err, domain.ErrHasChildren)

	got, err := repo.FindByName(ctx, "Temp")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("connect db: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("ping db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE upbit_accounts, tokens, users, categories RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
