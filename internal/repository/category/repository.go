package category

import (
	"context"

	"coinboard/internal/domain"
)

// Repository persists and fetches categories. Single-row lookups return nil, nil when the row is absent.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	FindRootCategories(ctx context.Context) ([]domain.Category, error)
	FindByParentID(ctx context.Context, parentID int64) ([]domain.Category, error)
	FindAll(ctx context.Context) ([]domain.Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	CountChildren(ctx context.Context, id int64) (int, error)
	Save(ctx context.Context, c domain.Category) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
	// DeleteSubtree removes id and all its descendants and returns the removed rows.
	DeleteSubtree(ctx context.Context, id int64) ([]domain.Category, error)
	// ReparentChildren moves the direct children of fromID under toID and returns them as updated.
	ReparentChildren(ctx context.Context, fromID int64, toID *int64) ([]domain.Category, error)
	// LockHierarchy serialises hierarchy-changing writers until the enclosing transaction ends.
	LockHierarchy(ctx context.Context) error
}

// Store is a Repository that can scope a unit of work in one transaction.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(tx Repository) error) error
}
